package ports

import (
	"context"

	"github.com/alejandrodnm/txopicker/internal/domain"
)

// ChainProvider entrega la foto de la cadena de opciones (spot + filas).
// Las filas ya vienen validadas y tipadas; el core no vuelve a validarlas.
type ChainProvider interface {
	// Months devuelve los meses de contrato disponibles ("YYYYMM") desde el mes de
	// valoración en adelante, ordenados.
	Months(ctx context.Context) ([]string, error)

	// FetchChain devuelve spot y filas del mes dado.
	FetchChain(ctx context.Context, month string) (domain.Chain, error)
}
