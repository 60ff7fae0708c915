package ingest

import (
	"fmt"

	"github.com/smartclass-id/classroom_core_v1/internal/apperrors"
)

var (
	errNoSession    = fmt.Errorf("no active session: %w", apperrors.ErrNotFound)
	errWrongSession = fmt.Errorf("answer targets a different session: %w", apperrors.ErrConflict)
	errDeviceOwner  = fmt.Errorf("device is claimed by another student: %w", apperrors.ErrConflict)
)
