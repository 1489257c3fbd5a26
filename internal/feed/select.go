package feed

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Mode selects the event source.
type Mode string

const (
	ModeAuto        Mode = "auto"
	ModePush        Mode = "push"
	ModeSynthesized Mode = "synthesized"
)

func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeAuto, "":
		return ModeAuto, nil
	case ModePush:
		return ModePush, nil
	case ModeSynthesized:
		return ModeSynthesized, nil
	default:
		return "", fmt.Errorf("unknown events source %q", value)
	}
}

// SelectSource returns the source for mode. In auto mode the push channel is
// probed first and the synthesizer is used only when it cannot be opened.
func SelectSource(ctx context.Context, mode Mode, stream *StreamSource, synth *SynthSource, logger *zap.Logger) (Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch mode {
	case ModePush:
		return stream, nil
	case ModeSynthesized:
		return synth, nil
	case ModeAuto, "":
		if err := stream.Connect(ctx); err != nil {
			logger.Warn("push channel unavailable, synthesizing events", zap.String("url", stream.URL()), zap.Error(err))
			return synth, nil
		}
		return stream, nil
	default:
		return nil, fmt.Errorf("unknown events source %q", mode)
	}
}
