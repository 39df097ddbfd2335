package chart

import (
	"errors"

	"github.com/newthinker/cryptodash/internal/live"
)

// Multi fans every call out to several surfaces of the same chart. Nil
// surfaces are skipped.
func Multi(surfaces ...live.Surface) live.Surface {
	m := make(multi, 0, len(surfaces))
	for _, s := range surfaces {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

type multi []live.Surface

func (m multi) Mount(series []live.Series) error {
	var errs []error
	for _, s := range m {
		if err := s.Mount(series); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Update(series []live.Series) error {
	var errs []error
	for _, s := range m {
		if err := s.Update(series); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Destroy() {
	for _, s := range m {
		s.Destroy()
	}
}
