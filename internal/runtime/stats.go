package runtime

import "sync/atomic"

// HandlerKind tells how a handler consumes its source.
type HandlerKind string

const (
	// HandlerKindContinuous forwards module results to a sink topic.
	HandlerKindContinuous HandlerKind = "continuous"
	// HandlerKindConsumer invokes the module without publishing results.
	HandlerKindConsumer HandlerKind = "consumer"
	// HandlerKindRequest replies to the topic named by the request.
	HandlerKindRequest HandlerKind = "request"
)

// HandlerInfo describes one registered handler and counts its outcomes.
type HandlerInfo struct {
	Name   string
	Kind   HandlerKind
	Source string
	Sink   string

	Processed atomic.Int64
	Failed    atomic.Int64
}

// HandlerStats is a point-in-time copy of one handler's counters.
type HandlerStats struct {
	Name      string      `json:"name"`
	Kind      HandlerKind `json:"kind"`
	Source    string      `json:"source"`
	Sink      string      `json:"sink,omitempty"`
	Processed int64       `json:"processed"`
	Failed    int64       `json:"failed"`
}

func (s *Service) addHandlerInfo(name string, kind HandlerKind, source, sink string) *HandlerInfo {
	info := &HandlerInfo{
		Name:   name,
		Kind:   kind,
		Source: source,
		Sink:   sink,
	}
	s.handlersMu.Lock()
	s.handlers = append(s.handlers, info)
	s.handlersMu.Unlock()
	return info
}

// HandlerStats snapshots the counters of all registered handlers.
func (s *Service) HandlerStats() []HandlerStats {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()

	stats := make([]HandlerStats, 0, len(s.handlers))
	for _, info := range s.handlers {
		stats = append(stats, HandlerStats{
			Name:      info.Name,
			Kind:      info.Kind,
			Source:    info.Source,
			Sink:      info.Sink,
			Processed: info.Processed.Load(),
			Failed:    info.Failed.Load(),
		})
	}
	return stats
}
