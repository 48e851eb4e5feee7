package statement

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ais-clarity/internal/model"
)

// ReadCSV reads a CSV statement. The first row is the header.
func ReadCSV(ctx context.Context, r io.Reader, opts Options) ([]model.Entry, error) {
	rowCh, errCh := streamCSV(ctx, r)

	b := newBuilder(opts)
	first := true
	for row := range rowCh {
		if first {
			first = false
			if err := b.header(row); err != nil {
				drain(rowCh)
				return nil, err
			}
			continue
		}
		if err := b.add(row); err != nil {
			drain(rowCh)
			return nil, err
		}
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if first {
		return nil, eris.New("statement: empty file")
	}
	return b.entries, nil
}

// streamCSV reads rows and sends them to a channel. Both channels are
// closed when reading completes; at most one error is sent.
func streamCSV(ctx context.Context, r io.Reader) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		defer close(rowCh)

		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "statement: csv cancelled")
				return
			}

			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "statement: read csv row")
				return
			}
			if len(record) > 0 {
				record[0] = strings.TrimPrefix(record[0], "\ufeff")
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "statement: csv cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

func drain(ch <-chan []string) {
	for range ch {
	}
}
