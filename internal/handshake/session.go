package handshake

import (
	"github.com/Zuo-Peng/zo-export/internal/export"
	"github.com/Zuo-Peng/zo-export/internal/snapshot"
	"github.com/Zuo-Peng/zo-export/internal/workdir"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session carries everything one export run needs. The caller creates it,
// passes it to RunExport and drops it afterwards; nothing is kept globally.
type Session struct {
	ID         uuid.UUID
	Dir        workdir.Dir
	Logger     zerolog.Logger
	APIVersion int
	KindPolicy export.KindPolicy

	// OnState, when set, is called on entering each state.
	OnState func(State)

	// Force breaks a lock left behind by an earlier run.
	Force bool
}

// NewSession opens the working directory under dataDir and tags the logger
// with a fresh run id.
func NewSession(dataDir, workDirName string, logger zerolog.Logger) (*Session, error) {
	dir, err := workdir.Ensure(dataDir, workDirName)
	if err != nil {
		return nil, fail(KindWorkDir, StatePrepare, err)
	}

	id := uuid.New()
	return &Session{
		ID:         id,
		Dir:        dir,
		Logger:     logger.With().Str("run_id", id.String()).Logger(),
		APIVersion: snapshot.APIVersion,
		KindPolicy: export.DefaultKindPolicy,
	}, nil
}

func (s *Session) enter(state State) {
	s.Logger.Debug().Str("state", state.String()).Msg("enter state")
	if s.OnState != nil {
		s.OnState(state)
	}
}
