package ml

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// EnvelopeFormat identifies serialized pipelines.
const EnvelopeFormat = "credit-scoring/pipeline"

// EnvelopeVersion is bumped whenever the Pipeline encoding changes
// incompatibly.
const EnvelopeVersion = 1

// Envelope wraps a serialized pipeline with its format metadata.
type Envelope struct {
	Format   string    `json:"format"`
	Version  int       `json:"version"`
	Pipeline *Pipeline `json:"pipeline"`
}

// Codec encodes pipelines as zstd-compressed JSON envelopes.
// The zero value is not usable; use NewCodec.
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

var _ ports.ModelCodec = (*Codec)(nil)

// NewCodec creates a Codec. EncodeAll and DecodeAll are safe for
// concurrent use, so one Codec can serve every stage.
func NewCodec() (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Codec{encoder: enc, decoder: dec}, nil
}

// Encode implements ports.ModelCodec.
func (c *Codec) Encode(model ports.Classifier) ([]byte, error) {
	p, ok := model.(*Pipeline)
	if !ok {
		return nil, fmt.Errorf("cannot encode classifier of type %T", model)
	}
	raw, err := json.Marshal(Envelope{Format: EnvelopeFormat, Version: EnvelopeVersion, Pipeline: p})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pipeline: %w", err)
	}
	return c.encoder.EncodeAll(raw, nil), nil
}

// Decode implements ports.ModelCodec.
func (c *Codec) Decode(data []byte) (ports.Classifier, error) {
	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrCorruptArtifact, err)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrCorruptArtifact, err)
	}
	if env.Format != EnvelopeFormat {
		return nil, fmt.Errorf("%w: unexpected format %q", ports.ErrCorruptArtifact, env.Format)
	}
	if env.Version != EnvelopeVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ports.ErrCorruptArtifact, env.Version)
	}
	if env.Pipeline == nil {
		return nil, fmt.Errorf("%w: empty pipeline", ports.ErrCorruptArtifact)
	}
	return env.Pipeline, nil
}
