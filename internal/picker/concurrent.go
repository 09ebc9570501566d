package picker

// concurrent.go: worker pool para evaluar filas de la cadena en paralelo.
//
// Cada fila es independiente; el orden de llegada no importa porque el ranking
// re-ordena todo con desempates deterministas.

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/txopicker/internal/domain"
)

// rowTask es una fila con la volatilidad ya resuelta.
type rowTask struct {
	row   domain.OptionRow
	sigma float64
}

// evaluation agrega lo producido por el worker pool.
type evaluation struct {
	candidates []domain.Candidate
	faults     int
}

// analyzeRowsConcurrent evalúa todas las filas usando un worker pool.
// Si workers <= 0 usa runtime.NumCPU() × 2.
func analyzeRowsConcurrent(
	ctx context.Context,
	analyzer *Analyzer,
	spot domain.SpotContext,
	tasks []rowTask,
	workers int,
) evaluation {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	if workers > len(tasks) {
		workers = max(len(tasks), 1)
	}

	workCh := make(chan rowTask, len(tasks))
	resultCh := make(chan domain.Candidate, len(tasks))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		faults int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range workCh {
				c, err := analyzer.Analyze(ctx, spot, t.row, t.sigma)
				if c.Pricing == domain.StatusNumericFault {
					mu.Lock()
					faults++
					mu.Unlock()
					slog.Warn("numeric fault in pricer, using neutral fallback",
						"strike", t.row.Strike,
						"side", string(t.row.Side),
						"sigma", t.sigma,
					)
				}
				if err != nil {
					if errors.Is(err, ErrUnrankable) {
						slog.Debug("row dropped", "err", err)
					} else {
						slog.Warn("analyze failed", "strike", t.row.Strike, "side", string(t.row.Side), "err", err)
					}
					continue
				}
				resultCh <- c
			}
		}()
	}

	for _, t := range tasks {
		workCh <- t
	}
	close(workCh)

	// Cerrar resultCh cuando todos los workers terminen.
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	out := make([]domain.Candidate, 0, len(tasks))
	for c := range resultCh {
		out = append(out, c)
	}

	slog.Debug("concurrent evaluation complete",
		"rows_queued", len(tasks),
		"candidates", len(out),
		"workers", workers,
	)
	return evaluation{candidates: out, faults: faults}
}
