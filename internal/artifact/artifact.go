// Package artifact persists fitted vectorizers and classifiers as versioned
// JSON envelopes.
package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/deepak-highbeam/complaint-classifier/internal/blob"
	"github.com/deepak-highbeam/complaint-classifier/internal/naivebayes"
	"github.com/deepak-highbeam/complaint-classifier/internal/vectorize"
)

// Envelope kinds.
const (
	KindVectorizer = "tfidf_vectorizer"
	KindModel      = "naive_bayes"
)

// Version is the envelope format written by this build.
const Version = 1

var (
	ErrKindMismatch = errors.New("artifact kind mismatch")
	ErrVersion      = errors.New("unsupported artifact version")
)

type envelope struct {
	Kind    string          `json:"kind"`
	Version int             `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

func encode(kind string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", kind, err)
	}
	return json.Marshal(envelope{Kind: kind, Version: Version, Payload: raw})
}

func decode(kind string, data []byte, payload any) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("parse artifact: %w", err)
	}
	if env.Kind != kind {
		return fmt.Errorf("%w: want %q, got %q", ErrKindMismatch, kind, env.Kind)
	}
	if env.Version != Version {
		return fmt.Errorf("%w: %d", ErrVersion, env.Version)
	}
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return fmt.Errorf("parse %s payload: %w", kind, err)
	}
	return nil
}

// EncodeVectorizer serializes a fitted vectorizer.
func EncodeVectorizer(v *vectorize.TFIDF) ([]byte, error) {
	st, err := v.State()
	if err != nil {
		return nil, err
	}
	return encode(KindVectorizer, st)
}

// DecodeVectorizer restores a vectorizer written by EncodeVectorizer.
func DecodeVectorizer(data []byte) (*vectorize.TFIDF, error) {
	var st vectorize.State
	if err := decode(KindVectorizer, data, &st); err != nil {
		return nil, err
	}
	return vectorize.FromState(st)
}

// EncodeModel serializes a fitted classifier.
func EncodeModel(c naivebayes.Classifier) ([]byte, error) {
	return encode(KindModel, c.Params())
}

// DecodeModel restores a classifier written by EncodeModel.
func DecodeModel(data []byte) (naivebayes.Classifier, error) {
	var p naivebayes.Params
	if err := decode(KindModel, data, &p); err != nil {
		return nil, err
	}
	return naivebayes.FromParams(p)
}

// SaveVectorizer writes v to location.
func SaveVectorizer(ctx context.Context, s blob.Store, location string, v *vectorize.TFIDF) error {
	data, err := EncodeVectorizer(v)
	if err != nil {
		return err
	}
	return s.Write(ctx, location, data)
}

// LoadVectorizer reads a vectorizer from location.
func LoadVectorizer(ctx context.Context, s blob.Store, location string) (*vectorize.TFIDF, error) {
	data, err := s.Read(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read vectorizer: %w", err)
	}
	v, err := DecodeVectorizer(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	return v, nil
}

// SaveModel writes c to location.
func SaveModel(ctx context.Context, s blob.Store, location string, c naivebayes.Classifier) error {
	data, err := EncodeModel(c)
	if err != nil {
		return err
	}
	return s.Write(ctx, location, data)
}

// LoadModel reads a classifier from location.
func LoadModel(ctx context.Context, s blob.Store, location string) (naivebayes.Classifier, error) {
	data, err := s.Read(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	c, err := DecodeModel(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	return c, nil
}
