package s2_features

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/pkg/logger"
)

func testSplit() (*contracts.Split, *contracts.LabelBase) {
	training := contracts.NewTransactionTable([]contracts.Transaction{
		line("A1", "C1", "P1", 2, "5", at(1)),
		line("A2", "C1", "P2", 3, "5", at(10)),
		line("A3", "C1", "P1", 1, "5", at(40)),
		line("B1", "C2", "P3", 7, "1.25", at(45)),
	})
	observation := contracts.NewTransactionTable([]contracts.Transaction{
		line("B2", "C2", "P3", 1, "1.25", at(60)),
	})
	split := &contracts.Split{
		Window:      contracts.Window{Cutoff: at(50), ObservationEnd: at(60)},
		Training:    training,
		Observation: observation,
	}
	return split, contracts.NewLabelBase(training.CustomerSet(), observation.CustomerSet())
}

func TestBuilder_Build(t *testing.T) {
	split, base := testSplit()
	b := NewBuilder(Config{Lookbacks: []int{30, 60, 90}, Product: true}, logger.Nop())

	set, err := b.Build(context.Background(), split, base)
	require.NoError(t, err)

	assert.Equal(t, []int{30, 60, 90}, set.Lookbacks)
	for _, id := range base.CustomerIDs {
		assert.Contains(t, set.RFM, id)
		assert.Contains(t, set.Behavioral, id)
		assert.Contains(t, set.Temporal, id)
		assert.Contains(t, set.Product, id)
	}
	assert.Len(t, set.RFM, base.Count())
	assert.Equal(t, 10, set.RFM["C1"].Recency)
	assert.Equal(t, 5, set.RFM["C2"].Recency)
}

func TestBuilder_ProductDisabled(t *testing.T) {
	split, base := testSplit()
	set, err := NewBuilder(Config{}, logger.Nop()).Build(context.Background(), split, base)
	require.NoError(t, err)

	assert.Nil(t, set.Product)
	assert.Equal(t, DefaultLookbacks, set.Lookbacks)
}

func TestBuilder_Cancelled(t *testing.T) {
	split, base := testSplit()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(Config{Product: true}, logger.Nop()).Build(ctx, split, base)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuilder_EmptyTraining(t *testing.T) {
	_, err := NewBuilder(Config{}, logger.Nop()).Build(context.Background(), &contracts.Split{
		Training: contracts.NewTransactionTable(nil),
	}, nil)
	assert.Error(t, err)
}

func TestBuilder_BaseMismatch(t *testing.T) {
	split, _ := testSplit()
	other := contracts.NewLabelBase(map[string]struct{}{"C1": {}}, nil)

	_, err := NewBuilder(Config{}, logger.Nop()).Build(context.Background(), split, other)
	assert.Error(t, err)
}
