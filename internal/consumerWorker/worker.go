package consumerWorker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/wb-go/wbf/zlog"

	"attendly/internal/dto"
	"attendly/internal/model"
	"attendly/internal/notifier"
	"attendly/internal/rabbit"
	"attendly/internal/repo"
)

// Store is the slice of the repository the worker reads from.
type Store interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetEventByID(ctx context.Context, id int64) (*model.Event, error)
}

// Reader drains the notification queue: each message becomes one email
// attempt and one notification log row. The primary request that queued
// the message has long since returned.
type Reader struct {
	RMQ        *rabbit.Client
	store      Store
	dispatcher *notifier.Dispatcher
	done       chan struct{}
	cancel     context.CancelFunc
}

func NewReader(rmq *rabbit.Client, store Store, dispatcher *notifier.Dispatcher) *Reader {
	return &Reader{
		RMQ:        rmq,
		store:      store,
		dispatcher: dispatcher,
		done:       make(chan struct{}),
	}
}

// handle processes one queued message. A nil return acks the message; a
// non-nil return nacks it back onto the queue, so only errors worth
// retrying may escape: malformed payloads and rows that no longer exist
// are dropped here, while transient store failures are returned so the
// message survives until the store recovers.
func (r *Reader) handle(ctx context.Context, body []byte) error {
	var msg dto.NotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		// Drop malformed messages instead of requeueing them forever.
		zlog.Logger.Error().Err(err).Msgf("failed to unmarshal notification message: %s", string(body))
		return nil
	}

	zlog.Logger.Info().
		Str("kind", msg.Kind).
		Int64("user_id", msg.UserID).
		Int64("event_id", msg.EventID).
		Msg("received notification message")

	user, err := r.store.GetUserByID(ctx, msg.UserID)
	if errors.Is(err, repo.ErrUserNotFound) {
		zlog.Logger.Warn().
			Int64("user_id", msg.UserID).
			Msg("notification user no longer exists, dropping message")
		return nil
	}
	if err != nil {
		zlog.Logger.Error().Err(err).
			Int64("user_id", msg.UserID).
			Msg("failed to load user for notification, requeueing")
		return err
	}

	event, err := r.store.GetEventByID(ctx, msg.EventID)
	if errors.Is(err, repo.ErrEventNotFound) {
		zlog.Logger.Warn().
			Int64("event_id", msg.EventID).
			Msg("notification event no longer exists, dropping message")
		return nil
	}
	if err != nil {
		zlog.Logger.Error().Err(err).
			Int64("event_id", msg.EventID).
			Msg("failed to load event for notification, requeueing")
		return err
	}

	status := r.dispatcher.Dispatch(ctx, model.NotificationKind(msg.Kind), user, event)
	zlog.Logger.Info().
		Str("kind", msg.Kind).
		Str("status", string(status)).
		Str("email", user.Email).
		Msg("notification processed")
	return nil
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("notification worker started")

	go func() {
		defer close(r.done)

		if err := r.RMQ.Consume(func(body []byte) error {
			return r.handle(cctx, body)
		}); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("notification worker stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
