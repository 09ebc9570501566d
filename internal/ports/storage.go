package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/txopicker/internal/domain"
)

// Storage guarda el historial de búsquedas.
type Storage interface {
	// SaveSearch persiste una búsqueda y su ranking.
	SaveSearch(ctx context.Context, result domain.SearchResult) error

	// GetHistory devuelve las búsquedas registradas en el rango de tiempo dado.
	GetHistory(ctx context.Context, from, to time.Time) ([]domain.SearchResult, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
