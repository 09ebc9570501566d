package domain

import "errors"

// ErrInvalidConfig marca errores de configuración: target_leverage <= 0, top_n <= 0, etc.
// Es el único error que la búsqueda devuelve al caller; las irregularidades de datos de
// mercado se absorben con fallbacks.
var ErrInvalidConfig = errors.New("invalid configuration")
