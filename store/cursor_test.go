/*
 * Copyright © 2025 Quayside Systems Inc., All rights reserved.
 */

package store

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/quayside/modelstore/errors"
)

func TestCursorRoundTrip(t *testing.T) {
	key := map[string]types.AttributeValue{
		"company_id": &types.AttributeValueMemberS{Value: "acme"},
		"seq":        &types.AttributeValueMemberN{Value: "42"},
		"digest":     &types.AttributeValueMemberB{Value: []byte{0x01, 0x02}},
	}
	token, err := encodeCursor(key)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := decodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, key, decoded)
}

func TestCursorEmptyKey(t *testing.T) {
	token, err := encodeCursor(nil)
	require.NoError(t, err)
	assert.Empty(t, token, "exhausted sequences produce no cursor")
}

func TestCursorRejectsNonScalarKey(t *testing.T) {
	_, err := encodeCursor(map[string]types.AttributeValue{
		"flag": &types.AttributeValueMemberBOOL{Value: true},
	})
	assert.Error(t, err)
}

func TestDecodeCursorMalformed(t *testing.T) {
	for _, token := range []string{
		"!!!not-base64!!!",
		"bm90IGpzb24",  // "not json"
		"e30",          // "{}"
		"eyJhIjp7fX0",  // `{"a":{}}`, no scalar member
	} {
		_, err := decodeCursor(token)
		assert.True(t, apperrors.IsValidation(err), "token %q should be rejected, got %v", token, err)
	}
}
