// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package eval

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ItemID identifies a dataset item. Datasets use either JSON numbers or
// strings; numbers are written back as numbers.
type ItemID string

// UnmarshalJSON accepts a JSON number or string.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or string: %w", err)
	}
	*id = ItemID(n.String())
	return nil
}

// MarshalJSON writes numeric ids as numbers.
func (id ItemID) MarshalJSON() ([]byte, error) {
	if isNumber(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func isNumber(s string) bool {
	var n json.Number
	return json.Unmarshal([]byte(s), &n) == nil
}

// Item is one evaluation question.
type Item struct {
	ID             ItemID `json:"id" validate:"required"`
	Query          string `json:"query" validate:"required"`
	GroundTruth    string `json:"ground_truth"`
	SourceDocument string `json:"source_document"`
	QueryType      string `json:"query_type"`
}

var validate = validator.New()

// ValidateItems checks every item's required fields and that ids are unique.
func ValidateItems(items []Item) error {
	if len(items) == 0 {
		return ErrEmptyDataset
	}

	seen := make(map[ItemID]int, len(items))
	for i, item := range items {
		item.Query = strings.TrimSpace(item.Query)
		if err := validate.Struct(item); err != nil {
			return fmt.Errorf("%w: item %d: %s", ErrInvalidItem, i, describe(err))
		}
		if prev, dup := seen[item.ID]; dup {
			return fmt.Errorf("%w: item %d reuses id %s from item %d", ErrInvalidItem, i, item.ID, prev)
		}
		seen[item.ID] = i
	}
	return nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s'", e.Field(), e.Tag()))
	}
	return strings.Join(msgs, "; ")
}

// ParseDataset decodes and validates a JSON array of items.
func ParseDataset(r io.Reader) ([]Item, error) {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode evaluation dataset: %w", err)
	}
	if err := ValidateItems(items); err != nil {
		return nil, err
	}
	return items, nil
}

// LoadDataset reads a dataset file.
func LoadDataset(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("evaluation data not found: %w", err)
	}
	defer f.Close()
	return ParseDataset(f)
}
