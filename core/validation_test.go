package core

import (
	"errors"
	"testing"
)

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name:    "valid chunk",
			chunk:   &Chunk{Content: "Employees accrue PTO monthly.", Source: "policies/pto.md"},
			wantErr: nil,
		},
		{
			name:    "valid chunk without vector",
			chunk:   &Chunk{Content: "text", Source: "a.md", Vector: nil},
			wantErr: nil,
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "blank content",
			chunk:   &Chunk{Content: "  \n", Source: "a.md"},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "empty source",
			chunk:   &Chunk{Content: "text"},
			wantErr: ErrEmptySource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidChunk) {
				t.Errorf("ValidateChunk() error should wrap ErrInvalidChunk, got %v", err)
			}
		})
	}
}

func TestValidateDimensions(t *testing.T) {
	if err := ValidateDimensions([]float32{1, 2}, []float32{3, 4}); err != nil {
		t.Errorf("ValidateDimensions() unexpected error = %v", err)
	}
	err := ValidateDimensions([]float32{1}, []float32{1, 2})
	if !errors.Is(err, ErrVectorDimension) {
		t.Errorf("ValidateDimensions() error = %v, want %v", err, ErrVectorDimension)
	}
}
