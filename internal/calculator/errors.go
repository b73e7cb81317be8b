package calculator

import (
	"fmt"

	"github.com/coffeeliuwei/stock-training/internal/model"
)

// Error kinds returned by every indicator. Match them with errors.Is.
var (
	ErrInvalidParameter = model.ErrInvalidParameter
	ErrInvalidInput     = model.ErrInvalidInput
	ErrInsufficientData = model.ErrInsufficientData
)

func invalidParam(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidParameter}, args...)...)
}

func checkSeries(s *model.Series) error {
	if s.Len() == 0 {
		return fmt.Errorf("%w: empty series", ErrInvalidInput)
	}
	return nil
}
