package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmm/internal/core"
)

func validGroup(id, name string) core.Group {
	return core.Group{ID: id, Name: name, Budget: core.Money{Cents: 1500000}, Members: 5, Icon: "🏢"}
}

func validTransaction(id string, day int) core.Transaction {
	return core.Transaction{
		ID:        id,
		Date:      core.NewDate(2025, 6, day),
		Merchant:  "Starbucks",
		Amount:    core.Money{Cents: 32000},
		Type:      core.TypeExpense,
		Ownership: core.OwnershipPersonal,
	}
}

func TestAddOrReplaceTransaction_InsertsAtFront(t *testing.T) {
	s := NewStore()

	_, err := s.AddOrReplaceTransaction(validTransaction("1", 10))
	require.NoError(t, err)

	// A backdated entry still goes to the front of the raw collection.
	snap, err := s.AddOrReplaceTransaction(validTransaction("2", 1))
	require.NoError(t, err)

	require.Len(t, snap.Transactions, 2)
	assert.Equal(t, "2", snap.Transactions[0].ID)
	assert.Equal(t, "1", snap.Transactions[1].ID)
}

func TestAddOrReplaceTransaction_ReplaceKeepsPosition(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"1", "2", "3"} {
		_, err := s.AddOrReplaceTransaction(validTransaction(id, 5))
		require.NoError(t, err)
	}

	edited := validTransaction("2", 5)
	edited.Merchant = "Grab Food"
	snap, err := s.AddOrReplaceTransaction(edited)
	require.NoError(t, err)

	require.Len(t, snap.Transactions, 3)
	assert.Equal(t, []string{"3", "2", "1"}, []string{
		snap.Transactions[0].ID, snap.Transactions[1].ID, snap.Transactions[2].ID,
	})
	assert.Equal(t, "Grab Food", snap.Transactions[1].Merchant)
}

func TestAddOrReplaceTransaction_IdempotentReplace(t *testing.T) {
	s := NewStore()
	tx := validTransaction("1", 5)

	first, err := s.AddOrReplaceTransaction(tx)
	require.NoError(t, err)
	second, err := s.AddOrReplaceTransaction(tx)
	require.NoError(t, err)

	assert.Equal(t, first.Transactions, second.Transactions)
	assert.Equal(t, core.Balance(first.Transactions), core.Balance(second.Transactions))
}

func TestAddOrReplaceTransaction_RejectsInvalid(t *testing.T) {
	s := NewStore()
	_, err := s.AddOrReplaceTransaction(validTransaction("1", 5))
	require.NoError(t, err)

	bad := validTransaction("2", 5)
	bad.Merchant = ""
	_, err = s.AddOrReplaceTransaction(bad)
	assert.ErrorIs(t, err, core.ErrInvalidTransaction)

	// Store unchanged after the failure.
	assert.Len(t, s.Snapshot().Transactions, 1)
}

func TestAddOrReplaceTransaction_GroupMustExist(t *testing.T) {
	s := NewStore()

	tx := validTransaction("1", 5)
	tx.Ownership = core.OwnershipGroup
	tx.GroupID = "ghost"
	_, err := s.AddOrReplaceTransaction(tx)
	assert.ErrorIs(t, err, core.ErrUnknownGroup)

	_, err = s.AddGroup(validGroup("g1", "Marketing"))
	require.NoError(t, err)

	tx.GroupID = "g1"
	_, err = s.AddOrReplaceTransaction(tx)
	assert.NoError(t, err)
}

func TestAddOrReplaceTransaction_NormalizesStaleGroupID(t *testing.T) {
	s := NewStore()

	tx := validTransaction("1", 5)
	tx.GroupID = "left-over" // personal ownership, stale reference
	snap, err := s.AddOrReplaceTransaction(tx)
	require.NoError(t, err)
	assert.Empty(t, snap.Transactions[0].GroupID)
}

func TestAddGroup(t *testing.T) {
	s := NewStore()

	snap, err := s.AddGroup(validGroup("g1", "Marketing"))
	require.NoError(t, err)
	snap, err = s.AddGroup(validGroup("g2", "Lunch"))
	require.NoError(t, err)

	// Insertion order is display order.
	require.Len(t, snap.Groups, 2)
	assert.Equal(t, "g1", snap.Groups[0].ID)
	assert.Equal(t, "g2", snap.Groups[1].ID)

	_, err = s.AddGroup(validGroup("g1", "Duplicate"))
	assert.ErrorIs(t, err, core.ErrDuplicateID)

	bad := validGroup("g3", "Bad")
	bad.Budget = core.Money{}
	_, err = s.AddGroup(bad)
	assert.ErrorIs(t, err, core.ErrInvalidGroup)
}

func TestUpdateGroup(t *testing.T) {
	s := NewStore()
	_, err := s.AddGroup(validGroup("g1", "Marketing"))
	require.NoError(t, err)
	_, err = s.AddGroup(validGroup("g2", "Lunch"))
	require.NoError(t, err)

	updated := validGroup("g1", "Marketing & PR")
	snap, err := s.UpdateGroup(updated)
	require.NoError(t, err)

	// Position preserved.
	assert.Equal(t, "Marketing & PR", snap.Groups[0].Name)
	assert.Equal(t, "g2", snap.Groups[1].ID)

	_, err = s.UpdateGroup(validGroup("ghost", "Nobody"))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore()
	tx := validTransaction("1", 5)
	tx.Items = []string{"latte"}
	_, err := s.AddOrReplaceTransaction(tx)
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.Transactions[0].Merchant = "mutated"
	snap.Transactions[0].Items[0] = "mutated"

	fresh := s.Snapshot()
	assert.Equal(t, "Starbucks", fresh.Transactions[0].Merchant)
	assert.Equal(t, "latte", fresh.Transactions[0].Items[0])
}

func TestReset(t *testing.T) {
	s := NewStore()
	s.Reset(
		[]core.Transaction{validTransaction("1", 5)},
		[]core.Group{validGroup("g1", "Marketing")},
	)

	snap := s.Snapshot()
	assert.Len(t, snap.Transactions, 1)
	assert.Len(t, snap.Groups, 1)

	s.Reset(nil, nil)
	snap = s.Snapshot()
	assert.Empty(t, snap.Transactions)
	assert.Empty(t, snap.Groups)
}
