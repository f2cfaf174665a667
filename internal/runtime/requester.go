package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	configpkg "github.com/funcstream/funcstream/internal/runtime/config"
	"github.com/funcstream/funcstream/internal/runtime/correlation"
	errspkg "github.com/funcstream/funcstream/internal/runtime/errors"
	idspkg "github.com/funcstream/funcstream/internal/runtime/ids"
	"github.com/funcstream/funcstream/internal/runtime/jsoncodec"
	loggingpkg "github.com/funcstream/funcstream/internal/runtime/logging"
	metadatapkg "github.com/funcstream/funcstream/internal/runtime/metadata"
)

// RequesterConfig describes how a Requester talks to a function service.
type RequesterConfig struct {
	// RequestTopic is the topic the remote service consumes requests from.
	RequestTopic string

	// ReplyTopic receives the correlated replies. Defaults to
	// "<RequestTopic>-reply", matching the service-side fallback.
	ReplyTopic string

	// Timeout bounds how long a pending request waits for its reply.
	Timeout time.Duration
}

// Requester is the client side of request/response traffic. It publishes
// requests carrying a fresh correlation id and matches replies back to the
// waiting caller.
type Requester struct {
	publisher    message.Publisher
	tracker      *correlation.Tracker
	logger       loggingpkg.ServiceLogger
	requestTopic string
	replyTopic   string

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewRequester subscribes to the reply topic and returns a ready Requester.
// The publisher and subscriber usually come from the same transport the
// target service runs on.
func NewRequester(ctx context.Context, publisher message.Publisher, subscriber message.Subscriber, cfg RequesterConfig, log loggingpkg.ServiceLogger) (*Requester, error) {
	if publisher == nil {
		return nil, errspkg.ErrPublisherRequired
	}
	if cfg.RequestTopic == "" {
		return nil, errspkg.ErrTopicRequired
	}
	if cfg.ReplyTopic == "" {
		cfg.ReplyTopic = cfg.RequestTopic + "-reply"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = configpkg.DefaultRequestTimeout
	}
	if log == nil {
		log = loggingpkg.Nop()
	}

	subCtx, cancel := context.WithCancel(ctx)
	replies, err := subscriber.Subscribe(subCtx, cfg.ReplyTopic)
	if err != nil {
		cancel()
		return nil, err
	}

	r := &Requester{
		publisher:    publisher,
		tracker:      correlation.NewTracker(cfg.Timeout, log),
		logger:       log,
		requestTopic: cfg.RequestTopic,
		replyTopic:   cfg.ReplyTopic,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	go r.consumeReplies(replies)
	return r, nil
}

// NewRequester creates a Requester sharing the service transport. With the
// in-memory channel transport this is the only way to reach the service,
// since the broker lives inside the process.
func (s *Service) NewRequester(ctx context.Context, cfg RequesterConfig) (*Requester, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = s.Conf.RequestTimeout
	}
	if cfg.RequestTopic == "" {
		cfg.RequestTopic = s.Conf.RequestSource
	}
	return NewRequester(ctx, s.publisher, s.subscriber, cfg, s.Logger)
}

// Request publishes the payload and blocks until the correlated reply
// arrives, the configured timeout expires, or ctx is cancelled.
func (r *Requester) Request(ctx context.Context, data map[string]any) (map[string]any, error) {
	correlationID := idspkg.New()
	reply, err := r.tracker.Track(correlationID)
	if err != nil {
		return nil, err
	}

	md := metadatapkg.New(
		metadatapkg.KeyCorrelationID, correlationID,
		metadatapkg.KeyReplyTo, r.replyTopic,
	)
	if err := PublishMap(ctx, r.publisher, r.requestTopic, data, md); err != nil {
		r.tracker.Expire(correlationID)
		return nil, err
	}

	select {
	case res := <-reply:
		return res.Data, res.Err
	case <-ctx.Done():
		r.tracker.Expire(correlationID)
		return nil, ctx.Err()
	}
}

func (r *Requester) consumeReplies(replies <-chan *message.Message) {
	defer close(r.done)
	for msg := range replies {
		md := metadatapkg.FromWatermill(msg.Metadata)
		correlationID := md.CorrelationID()
		if correlationID == "" {
			r.logger.Debug("Dropping reply without correlation id", loggingpkg.LogFields{
				"message_uuid": msg.UUID,
			})
			msg.Ack()
			continue
		}

		var res correlation.Result
		if errMsg := md[metadatapkg.KeyError]; errMsg != "" {
			res.Err = &errspkg.RemoteError{CorrelationID: correlationID, Message: errMsg}
		} else if data, err := jsoncodec.DecodeMap(msg.Payload); err != nil {
			res.Err = err
		} else {
			res.Data = data
		}

		r.tracker.Resolve(correlationID, res)
		msg.Ack()
	}
}

// Close stops consuming replies and fails all pending requests. Safe to
// call more than once.
func (r *Requester) Close() error {
	r.closeOnce.Do(func() {
		r.cancel()
		<-r.done
		r.tracker.Close()
	})
	return nil
}
