// Package conversation runs the bounded classify, dispatch and reply loop for
// one inbound message.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	domconv "github.com/kailas-cloud/nearby/internal/domain/conversation"
	"github.com/kailas-cloud/nearby/internal/domain/intent"
	"github.com/kailas-cloud/nearby/internal/logger"
	"github.com/kailas-cloud/nearby/internal/metrics"
	"github.com/kailas-cloud/nearby/internal/usecase/search"
	"github.com/kailas-cloud/nearby/internal/usecase/searchcache"
)

// State is a loop state.
type State string

// Loop states.
const (
	StateClassifying State = "classifying"
	StateDispatching State = "dispatching"
	StateReplying    State = "replying"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Config bounds a loop run.
type Config struct {
	MaxIterations   int
	ClassifyTimeout time.Duration
}

// Controller drives one loop per inbound message.
type Controller struct {
	classifier Classifier
	searcher   Searcher
	normalizer Normalizer
	saver      SnapshotSaver
	cfg        Config
}

// New creates a controller.
func New(classifier Classifier, searcher Searcher, normalizer Normalizer, saver SnapshotSaver, cfg Config) *Controller {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 3
	}
	if cfg.ClassifyTimeout <= 0 {
		cfg.ClassifyTimeout = 30 * time.Second
	}
	return &Controller{
		classifier: classifier,
		searcher:   searcher,
		normalizer: normalizer,
		saver:      saver,
		cfg:        cfg,
	}
}

// run holds the state of one loop.
type run struct {
	sess   Session
	state  State
	intent intent.Kind
	reason string
	log    *zap.Logger
}

func (r *run) transition(to State) {
	r.log.Debug("loop transition", zap.String("from", string(r.state)), zap.String("to", string(to)))
	r.state = to
}

// Handle appends text to the session history and runs the loop until it
// ends. The returned error is non-nil only when the session can no longer
// be written to or ctx ended; user-visible failures are sent as notices.
func (c *Controller) Handle(ctx context.Context, sess Session, text string) error {
	start := time.Now()
	ctx = logger.WithFields(ctx, zap.String("session_id", sess.ID()))
	r := &run{sess: sess, state: StateClassifying, log: logger.FromContext(ctx)}

	sess.History().Append(domconv.RoleUser, text)

	err := c.loop(ctx, r)

	reason := r.reason
	if reason == "" {
		reason = string(r.intent)
	}
	metrics.LoopOutcomesTotal.WithLabelValues(string(r.state), reason).Inc()

	fields := []zap.Field{
		zap.String("state", string(r.state)),
		zap.String("intent", string(r.intent)),
		zap.String("reason", r.reason),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		r.log.Warn("message handled", append(fields, zap.Error(err))...)
		return err
	}
	r.log.Info("message handled", fields...)
	return nil
}

func (c *Controller) loop(ctx context.Context, r *run) error {
	for iteration := 1; r.state == StateClassifying; iteration++ {
		if iteration > c.cfg.MaxIterations {
			return c.fail(ctx, r, NoticeIterationLimit, nil)
		}

		res, err := c.classify(ctx, r.sess.History().Recent())
		if err != nil {
			if ctx.Err() != nil {
				r.transition(StateFailed)
				r.reason = "canceled"
				return fmt.Errorf("classify: %w", ctx.Err())
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return c.fail(ctx, r, NoticeTimeout, err)
			}
			return c.fail(ctx, r, NoticeError, err)
		}
		r.intent = res.Kind()

		switch v := res.(type) {
		case intent.Reply:
			err = c.reply(ctx, r, v)
		case intent.Search:
			err = c.search(ctx, r, v)
		case intent.Legacy:
			err = c.legacy(ctx, r, v)
		case intent.Unknown:
			r.log.Warn("unknown function", zap.String("function", v.Function))
			return c.fail(ctx, r, NoticeUnknownFunction, nil)
		default:
			return c.fail(ctx, r, NoticeUnknownFunction, nil)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) classify(ctx context.Context, history []domconv.Turn) (intent.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ClassifyTimeout)
	defer cancel()
	return c.classifier.Classify(ctx, history) //nolint:wrapcheck // wrapped by the gateway
}

func (c *Controller) fail(ctx context.Context, r *run, code string, cause error) error {
	r.transition(StateFailed)
	r.reason = code
	if cause != nil {
		r.log.Warn("loop failed", zap.String("notice", code), zap.Error(cause))
	}
	if err := r.sess.Notice(ctx, newNotice(code)); err != nil {
		return fmt.Errorf("send notice: %w", err)
	}
	return nil
}

func (c *Controller) reply(ctx context.Context, r *run, v intent.Reply) error {
	r.transition(StateReplying)
	if v.Fallback {
		r.reason = "fallback"
	}
	return c.say(ctx, r, v.Message)
}

// say sends an assistant reply, records it and ends the loop.
func (c *Controller) say(ctx context.Context, r *run, text string) error {
	r.sess.History().Append(domconv.RoleAssistant, text)
	if err := r.sess.Reply(ctx, text); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	r.transition(StateDone)
	return nil
}

func (c *Controller) search(ctx context.Context, r *run, v intent.Search) error {
	r.transition(StateDispatching)
	bundle, err := c.searcher.Search(ctx, v, r.sess.Locator())
	if err != nil {
		return c.dispatchFailed(ctx, r, err)
	}
	return c.deliver(ctx, r, bundle, v.SearchText, v.SearchType, true)
}

func (c *Controller) legacy(ctx context.Context, r *run, v intent.Legacy) error {
	r.transition(StateDispatching)
	bundle, err := c.searcher.SearchLegacy(ctx, v, r.sess.Locator())
	if err != nil {
		return c.dispatchFailed(ctx, r, err)
	}
	return c.deliver(ctx, r, bundle, v.Query, intent.SearchTypeService, false)
}

func (c *Controller) dispatchFailed(ctx context.Context, r *run, err error) error {
	if ctx.Err() != nil {
		r.transition(StateFailed)
		r.reason = "canceled"
		return fmt.Errorf("dispatch: %w", err)
	}
	return c.fail(ctx, r, NoticeError, err)
}

// deliver normalizes and stores a bundle, then sends results and a closing
// reply. Legacy searches are only stored when they found something.
func (c *Controller) deliver(
	ctx context.Context, r *run, bundle *search.Bundle, query string, st intent.SearchType, alwaysSave bool,
) error {
	set := c.normalizer.Normalize(ctx, bundle.Records(), query, st)
	set.Summary.Query = query
	set.Summary.SearchType = string(st)

	out := Results{Set: set, Meta: bundle.Meta}
	if alwaysSave || set.Summary.Total > 0 {
		saved, err := c.saver.Save(ctx, searchcache.SaveRequest{
			Query:      query,
			Set:        set,
			Location:   bundle.Meta.Location,
			RadiusKm:   bundle.Meta.RadiusKm,
			SearchType: string(st),
			SearchedAt: bundle.Meta.Timestamp,
		})
		if err != nil {
			r.log.Warn("search snapshot not saved", zap.Error(err))
		} else {
			out.Share = &saved
		}
	}

	r.transition(StateReplying)
	if err := r.sess.Results(ctx, out); err != nil {
		return fmt.Errorf("send results: %w", err)
	}
	return c.say(ctx, r, closingReply(set.Summary))
}
