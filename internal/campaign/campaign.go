// Package campaign validates campaign documents.
package campaign

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"influencekit/internal/model"
	"influencekit/internal/template"
)

// Campaign is one validated messaging run. Only Count changes after Parse:
// the scheduler decrements it as batches are sent.
type Campaign struct {
	ID         string
	Message    string
	Sort       model.SortMode
	Scheduling model.Scheduling
	DryRun     bool
	// Count is nil when the campaign has no send limit.
	Count *int
	Tags  []string
}

// ValidationError rejects a campaign document.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid campaign %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Parse validates a campaign JSON document and fills defaults.
func Parse(data []byte) (*Campaign, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, invalid("document", "%v", err)
	}
	if doc == nil {
		return nil, invalid("document", "must be an object")
	}

	c := &Campaign{Sort: model.SortInfluence, Scheduling: model.SchedulingBurst}

	msg, ok := doc["message"].(string)
	if !ok || msg == "" {
		return nil, invalid("message", "required non-empty string")
	}
	if err := template.Validate(msg); err != nil {
		return nil, invalid("message", "%v", err)
	}
	c.Message = msg

	switch v := doc["campaign_id"].(type) {
	case nil:
	case string:
		c.ID = v
	case json.Number:
		if id, err := numberString(v); err != nil {
			return nil, invalid("campaign_id", "%v", err)
		} else if id != "0" {
			c.ID = id
		}
	default:
		return nil, invalid("campaign_id", "must be a string or number")
	}
	if c.ID == "" {
		sum := sha256.Sum256([]byte(c.Message))
		c.ID = hex.EncodeToString(sum[:])
	}

	switch v := doc["count"].(type) {
	case nil:
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, invalid("count", "%v", err)
		}
		if f <= 0 {
			return nil, invalid("count", "must be greater than zero")
		}
		if f != math.Trunc(f) || f > math.MaxInt32 {
			return nil, invalid("count", "must be a whole number")
		}
		n := int(f)
		c.Count = &n
	default:
		return nil, invalid("count", "must be a number")
	}

	switch v := doc["dryRun"].(type) {
	case nil:
	case bool:
		c.DryRun = v
	default:
		return nil, invalid("dryRun", "must be a boolean")
	}

	switch v := doc["sort"].(type) {
	case nil:
	case string:
		s, err := model.ParseSortMode(v)
		if err != nil {
			return nil, invalid("sort", "%v", err)
		}
		c.Sort = s
	default:
		return nil, invalid("sort", "must be a string")
	}

	switch v := doc["scheduling"].(type) {
	case nil:
	case string:
		s, err := model.ParseScheduling(v)
		if err != nil {
			return nil, invalid("scheduling", "%v", err)
		}
		c.Scheduling = s
	default:
		return nil, invalid("scheduling", "must be a string")
	}

	tags, err := parseFilter(doc["filter"])
	if err != nil {
		return nil, err
	}
	c.Tags = tags
	return c, nil
}

func parseFilter(raw any) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	filter, ok := raw.(map[string]any)
	if !ok {
		return nil, invalid("filter", "must be an object")
	}
	if filter["tags"] == nil {
		return nil, nil
	}
	list, ok := filter["tags"].([]any)
	if !ok {
		return nil, invalid("filter.tags", "must be an array")
	}
	tags := make([]string, 0, len(list))
	for i, item := range list {
		switch v := item.(type) {
		case string:
			tags = append(tags, v)
		case json.Number:
			s, err := numberString(v)
			if err != nil {
				return nil, invalid("filter.tags", "item %d: %v", i, err)
			}
			tags = append(tags, s)
		default:
			return nil, invalid("filter.tags", "item %d must be a string or number", i)
		}
	}
	return tags, nil
}

// numberString renders a JSON number the way it reads: 42 not 42.0, 1.5 as 1.5.
func numberString(n json.Number) (string, error) {
	f, err := n.Float64()
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// Limited reports whether the campaign stops after a fixed number of sends.
func (c *Campaign) Limited() bool { return c.Count != nil }
