package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "custodia/pkg/domain-errors"
)

// TestParseAccountID_Invariants validates the parsing invariant:
// "account IDs must be valid, non-empty, non-nil UUIDs".
func TestParseAccountID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseAccountID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseAccountID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseAccountID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseAccountID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, AccountID(validUUID), id)
	})
}

func TestParsePartition(t *testing.T) {
	t.Run("round-trips through hex", func(t *testing.T) {
		p := DerivePartition("restricted-shares")
		parsed, err := ParsePartition(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParsePartition("abcdef")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects zero partition", func(t *testing.T) {
		_, err := ParsePartition(strings.Repeat("00", 32))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("distinct labels derive distinct partitions", func(t *testing.T) {
		assert.NotEqual(t, DerivePartition("a"), DerivePartition("b"))
	})
}

// TestRoleCompositeKey documents that partition scope is part of the role
// identity: the same kind on two partitions is two different roles.
func TestRoleCompositeKey(t *testing.T) {
	p1 := DerivePartition("p1")
	p2 := DerivePartition("p2")

	r1 := PartitionRole(RoleParticipant, p1)
	r2 := PartitionRole(RoleParticipant, p2)
	assert.NotEqual(t, r1, r2)
	assert.NotEqual(t, r1, LedgerRole(RoleParticipant))

	seen := map[Role]bool{r1: true}
	assert.False(t, seen[r2])
}

func TestParseRoleKind(t *testing.T) {
	t.Run("accepts supported kinds", func(t *testing.T) {
		k, err := ParseRoleKind("issuer")
		require.NoError(t, err)
		assert.Equal(t, RoleIssuer, k)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		_, err := ParseRoleKind("superuser")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
