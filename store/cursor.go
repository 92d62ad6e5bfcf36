/*
 * Copyright © 2025 Quayside Systems Inc., All rights reserved.
 */

package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	apperrors "github.com/quayside/modelstore/errors"
)

// Page cursors carry the last evaluated key as base64-encoded JSON. Key
// attributes are scalars (S, N or B) by definition, so the encoding is exact.
type cursorAttr struct {
	S *string `json:"s,omitempty"`
	N *string `json:"n,omitempty"`
	B []byte  `json:"b,omitempty"`
}

func encodeCursor(key map[string]types.AttributeValue) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	attrs := make(map[string]cursorAttr, len(key))
	for name, av := range key {
		switch v := av.(type) {
		case *types.AttributeValueMemberS:
			s := v.Value
			attrs[name] = cursorAttr{S: &s}
		case *types.AttributeValueMemberN:
			n := v.Value
			attrs[name] = cursorAttr{N: &n}
		case *types.AttributeValueMemberB:
			attrs[name] = cursorAttr{B: v.Value}
		default:
			return "", fmt.Errorf("encode cursor: non-scalar key attribute %q", name)
		}
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeCursor(token string) (map[string]types.AttributeValue, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, apperrors.NewValidationError("cursor", "malformed cursor token")
	}
	var attrs map[string]cursorAttr
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, apperrors.NewValidationError("cursor", "malformed cursor token")
	}
	if len(attrs) == 0 {
		return nil, apperrors.NewValidationError("cursor", "empty cursor token")
	}
	key := make(map[string]types.AttributeValue, len(attrs))
	for name, a := range attrs {
		switch {
		case a.S != nil:
			key[name] = &types.AttributeValueMemberS{Value: *a.S}
		case a.N != nil:
			key[name] = &types.AttributeValueMemberN{Value: *a.N}
		case a.B != nil:
			key[name] = &types.AttributeValueMemberB{Value: a.B}
		default:
			return nil, apperrors.NewValidationError("cursor", "malformed cursor token")
		}
	}
	return key, nil
}
