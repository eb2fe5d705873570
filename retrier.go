package evdash

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var retrySleep = time.Second

type Retryable interface {
	Open() error
	Close() error
	Start(ctx context.Context) error
	Name() string
}

// retry keeps r running, reopening it after Start fails. It gives up only when
// the first Open fails and returns ctx.Err() once ctx is done.
func retry(ctx context.Context, r Retryable) error {
	if err := r.Open(); err != nil {
		return errors.Wrapf(err, "%s: unable to open", r.Name())
	}
	for {
		err := r.Start(ctx)
		if ctx.Err() != nil {
			if cerr := r.Close(); cerr != nil {
				log.WithField("err", cerr).Debugf("%s: close after cancel", r.Name())
			}
			return ctx.Err()
		}
		if err == nil {
			continue
		}
		log.WithField("err", err).Errorf("%s: reconnecting due to error", r.Name())
		if err = r.Close(); err != nil {
			log.WithField("err", err).Warnf("%s: unable to close", r.Name())
		}
		if err = reopen(ctx, r); err != nil {
			return err
		}
	}
}

// reopen calls Open every retrySleep until it succeeds or ctx is done.
func reopen(ctx context.Context, r Retryable) error {
	for {
		select {
		case <-time.After(retrySleep):
		case <-ctx.Done():
			return ctx.Err()
		}
		err := r.Open()
		if err == nil {
			return nil
		}
		log.WithField("err", err).Warnf("%s: unable to reopen", r.Name())
	}
}
