package runtime

import (
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/funcstream/funcstream/internal/runtime/errors"
	"github.com/funcstream/funcstream/internal/runtime/ids"
	"github.com/funcstream/funcstream/internal/runtime/jsoncodec"
	loggingpkg "github.com/funcstream/funcstream/internal/runtime/logging"
	"github.com/funcstream/funcstream/internal/runtime/metadata"
)

// registerHandlers wires the configured sources and the request source
// onto the router. Called after module Init succeeded and before the
// router starts, so a failing Init never opens a subscription.
func (s *Service) registerHandlers() error {
	for _, source := range s.Conf.Sources {
		if s.Conf.Sink != "" {
			name := fmt.Sprintf("%s_%s_to_%s", s.Conf.Module, source, s.Conf.Sink)
			info := s.addHandlerInfo(name, HandlerKindContinuous, source, s.Conf.Sink)
			s.router.AddHandler(name, source, s.subscriber, s.Conf.Sink, s.publisher, s.makeContinuousHandler(source, info))
		} else {
			name := fmt.Sprintf("%s_%s", s.Conf.Module, source)
			info := s.addHandlerInfo(name, HandlerKindConsumer, source, "")
			s.router.AddNoPublisherHandler(name, source, s.subscriber, s.makeConsumeHandler(source, info))
		}
	}

	if s.Conf.RequestSource != "" {
		name := fmt.Sprintf("%s_%s_request", s.Conf.Module, s.Conf.RequestSource)
		info := s.addHandlerInfo(name, HandlerKindRequest, s.Conf.RequestSource, "")
		s.router.AddNoPublisherHandler(name, s.Conf.RequestSource, s.subscriber, s.makeRequestHandler(info))
	}

	return nil
}

// makeContinuousHandler decodes the payload, invokes the module, and
// forwards the result to the sink. A nil result is dropped and the
// message acked.
func (s *Service) makeContinuousHandler(source string, info *HandlerInfo) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		result, err := s.process(msg, source)
		if err != nil {
			info.Failed.Add(1)
			return nil, err
		}
		info.Processed.Add(1)
		if result == nil {
			return nil, nil
		}

		payload, err := jsoncodec.Marshal(result)
		if err != nil {
			info.Failed.Add(1)
			return nil, &errspkg.ProcessingError{MessageUUID: msg.UUID, Topic: source, Err: err}
		}

		md := metadata.FromWatermill(msg.Metadata).
			With(metadata.KeySourceTopic, source).
			With(metadata.KeyModule, s.Conf.Module)
		out := message.NewMessage(ids.New(), payload)
		out.Metadata = metadata.ToWatermill(md)
		return []*message.Message{out}, nil
	}
}

// makeConsumeHandler invokes the module for its side effects. Used for
// sources configured without a sink.
func (s *Service) makeConsumeHandler(source string, info *HandlerInfo) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		if _, err := s.process(msg, source); err != nil {
			info.Failed.Add(1)
			return err
		}
		info.Processed.Add(1)
		return nil
	}
}

// makeRequestHandler serves request/response traffic. The reply echoes
// the request's correlation id and goes to the topic named in the
// fs_reply_to metadata, falling back to "<requestSource>-reply".
// Module failures become error replies and the request is acked, so a
// single request never produces more than one reply. Served correlation
// ids are deliberately not released when the reply is produced: they stay
// tracked until the request timeout expires them, trading immediate
// release for a redelivery dedupe window of that length.
func (s *Service) makeRequestHandler(info *HandlerInfo) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		md := metadata.FromWatermill(msg.Metadata)
		correlationID := md.CorrelationID()
		if _, err := s.tracker.Track(correlationID); err != nil {
			var dup *errspkg.DuplicateCorrelationError
			if errors.As(err, &dup) {
				s.Logger.Info("Dropping duplicate request", loggingpkg.LogFields{
					"correlation_id": correlationID,
					"message_uuid":   msg.UUID,
				})
				return nil
			}
			return err
		}

		replyTo := md.ReplyTo()
		if replyTo == "" {
			replyTo = s.Conf.RequestSource + "-reply"
		}

		result, err := s.process(msg, s.Conf.RequestSource)
		if err != nil {
			info.Failed.Add(1)
			if pubErr := s.publishErrorReply(replyTo, correlationID, err); pubErr != nil {
				s.tracker.Expire(correlationID)
				return pubErr
			}
			return nil
		}

		reply, err := newReplyMessage(result, correlationID)
		if err != nil {
			info.Failed.Add(1)
			s.tracker.Expire(correlationID)
			return &errspkg.ProcessingError{MessageUUID: msg.UUID, Topic: replyTo, Err: err}
		}

		if err := s.publisher.Publish(replyTo, reply); err != nil {
			info.Failed.Add(1)
			s.tracker.Expire(correlationID)
			return &errspkg.ProcessingError{MessageUUID: msg.UUID, Topic: replyTo, Err: err}
		}

		info.Processed.Add(1)
		return nil
	}
}

// process decodes the message payload and invokes the module. The module
// is serialized, so at most one invocation runs at a time.
func (s *Service) process(msg *message.Message, source string) (map[string]any, error) {
	data, err := jsoncodec.DecodeMap(msg.Payload)
	if err != nil {
		return nil, &errspkg.UnprocessablePayloadError{MessageUUID: msg.UUID, Err: err}
	}

	result, err := s.module.Process(msg.Context(), s.fc, data)
	if err != nil {
		return nil, &errspkg.ProcessingError{MessageUUID: msg.UUID, Topic: source, Err: err}
	}
	return result, nil
}

// publishErrorReply sends a reply describing a failed invocation. The
// request is acked afterwards: the failure belongs to the requester now,
// retrying the module would produce a second reply.
func (s *Service) publishErrorReply(replyTo, correlationID string, cause error) error {
	reply, err := newReplyMessage(map[string]any{"error": cause.Error()}, correlationID)
	if err != nil {
		return err
	}
	reply.Metadata.Set(metadata.KeyError, cause.Error())

	if err := s.publisher.Publish(replyTo, reply); err != nil {
		s.Logger.Error("Publishing error reply failed", err, loggingpkg.LogFields{
			"correlation_id": correlationID,
			"topic":          replyTo,
		})
		return err
	}
	return nil
}

func newReplyMessage(result map[string]any, correlationID string) (*message.Message, error) {
	payload, err := jsoncodec.Marshal(result)
	if err != nil {
		return nil, err
	}
	reply := message.NewMessage(ids.New(), payload)
	reply.Metadata.Set(metadata.KeyCorrelationID, correlationID)
	return reply, nil
}
