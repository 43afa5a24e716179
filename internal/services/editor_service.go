// internal/services/editor_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Corphon/NovelBuilder/internal/authoring"
	apperrors "github.com/Corphon/NovelBuilder/internal/errors"
	"github.com/Corphon/NovelBuilder/internal/gateway"
	"github.com/Corphon/NovelBuilder/internal/models"
	"github.com/Corphon/NovelBuilder/internal/utils"
)

// NovelGateway is the persistence surface the editor needs. gateway.Client implements it.
type NovelGateway interface {
	GetNovel(ctx context.Context, id int64) (*models.Novel, error)
	SaveNovel(ctx context.Context, id int64, payload models.NovelPayload) error
	PublishNovel(ctx context.Context, id int64) error
}

var _ NovelGateway = (*gateway.Client)(nil)

// Editor binds an editing session to one novel on the backend.
// The session has a single owning goroutine; at most one save runs at a time.
type Editor struct {
	novelID int64
	session *authoring.Session
	gateway NovelGateway
	gate    *gateway.SaveGate
	logger  *utils.Logger
}

// OpenEditor loads a novel from the backend and starts editing it. On failure
// it returns an error notice.
func OpenEditor(ctx context.Context, gw NovelGateway, id int64, logger *utils.Logger, opts ...authoring.Option) (*Editor, authoring.Notice, error) {
	if logger == nil {
		logger = utils.NopLogger()
	}
	novel, err := gw.GetNovel(ctx, id)
	if err != nil {
		logger.Warn("load novel failed", map[string]interface{}{"novel_id": id, "error": err.Error()})
		return nil, errorNotice("could not load the novel", err), err
	}
	if novel.ID == 0 {
		novel.ID = id
	}

	opts = append([]authoring.Option{authoring.WithLogger(logger)}, opts...)
	editor := &Editor{
		novelID: id,
		session: authoring.NewSession(novel, opts...),
		gateway: gw,
		gate:    gateway.NewSaveGate(),
		logger:  logger,
	}
	return editor, authoring.Notice{Level: authoring.NoticeInfo, Message: "novel loaded"}, nil
}

// NewEditor binds an existing session, e.g. one built offline and saved later.
func NewEditor(gw NovelGateway, id int64, session *authoring.Session, logger *utils.Logger) *Editor {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Editor{novelID: id, session: session, gateway: gw, gate: gateway.NewSaveGate(), logger: logger}
}

// Session returns the session being edited.
func (e *Editor) Session() *authoring.Session { return e.session }

// NovelID returns the backend novel id.
func (e *Editor) NovelID() int64 { return e.novelID }

// Saving reports whether a save is in flight.
func (e *Editor) Saving() bool { return e.gate.Busy() }

// Save commits the active scene and sends the whole novel to the backend.
// It returns gateway.ErrSaveInFlight while another save runs. A failed save
// leaves the editor untouched.
func (e *Editor) Save(ctx context.Context) (authoring.Notice, error) {
	var notice authoring.Notice
	err := e.gate.Do(ctx, func(ctx context.Context) error {
		var err error
		notice, err = e.save(ctx)
		return err
	})
	if errors.Is(err, gateway.ErrSaveInFlight) {
		return authoring.Notice{Level: authoring.NoticeInfo, Message: "a save is already in progress"}, err
	}
	return notice, err
}

func (e *Editor) save(ctx context.Context) (authoring.Notice, error) {
	payload := e.session.Payload()
	if err := e.gateway.SaveNovel(ctx, e.novelID, payload); err != nil {
		e.logger.Warn("save novel failed", map[string]interface{}{"novel_id": e.novelID, "error": err.Error()})
		return errorNotice("save failed", err), err
	}
	e.logger.Info("novel saved", map[string]interface{}{"novel_id": e.novelID, "scenes": len(payload.Scenes)})
	return authoring.Notice{Level: authoring.NoticeSuccess, Message: "novel saved"}, nil
}

// Publish saves first and publishes only if the save succeeded.
func (e *Editor) Publish(ctx context.Context) (authoring.Notice, error) {
	var notice authoring.Notice
	err := e.gate.Do(ctx, func(ctx context.Context) error {
		if n, err := e.save(ctx); err != nil {
			notice = n
			return err
		}
		if err := e.gateway.PublishNovel(ctx, e.novelID); err != nil {
			e.logger.Warn("publish novel failed", map[string]interface{}{"novel_id": e.novelID, "error": err.Error()})
			notice = errorNotice("publish failed", err)
			return err
		}
		e.session.SetPublished(true)
		notice = authoring.Notice{Level: authoring.NoticeSuccess, Message: "novel published"}
		return nil
	})
	if errors.Is(err, gateway.ErrSaveInFlight) {
		return authoring.Notice{Level: authoring.NoticeInfo, Message: "a save is already in progress"}, err
	}
	return notice, err
}

func errorNotice(prefix string, err error) authoring.Notice {
	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	switch {
	case apperrors.IsUnavailableError(err):
		msg += "; check your connection and try again"
	case apperrors.IsConflictError(err):
		msg += "; the novel changed on the server, reload it before saving again"
	}
	return authoring.Notice{Level: authoring.NoticeError, Message: fmt.Sprintf("%s: %s", prefix, msg)}
}
