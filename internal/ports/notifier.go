package ports

import (
	"context"

	"github.com/alejandrodnm/txopicker/internal/domain"
)

// Notifier presenta el resultado de la búsqueda al usuario.
type Notifier interface {
	// Notify muestra el mejor contrato y el ranking.
	// En la implementación de consola, imprime una tabla formateada.
	Notify(ctx context.Context, result domain.SearchResult) error
}
