package feed

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReceiver struct {
	mu     sync.Mutex
	byCode map[string][]string
}

func (r *recordingReceiver) ReceiveTickContext(_ context.Context, code string, price decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byCode == nil {
		r.byCode = make(map[string][]string)
	}
	r.byCode[code] = append(r.byCode[code], price.StringFixed(2))
}

func TestReplayer_KeepsPerCodeOrder(t *testing.T) {
	input := `# equity_code,price
AMZN,3.00
msft, 10.00

AMZN,4.00
MSFT,9.50
AMZN,4.50
`
	recv := &recordingReceiver{}
	n, err := NewReplayer(4).Run(context.Background(), strings.NewReader(input), recv)

	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []string{"3.00", "4.00", "4.50"}, recv.byCode["AMZN"])
	assert.Equal(t, []string{"10.00", "9.50"}, recv.byCode["MSFT"])
}

func TestReplayer_ParseErrorReportsLine(t *testing.T) {
	input := "AMZN,3.00\nAMZN,abc\nAMZN,1.00\n"
	recv := &recordingReceiver{}
	n, err := NewReplayer(2).Run(context.Background(), strings.NewReader(input), recv)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "第 2 行")
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"3.00"}, recv.byCode["AMZN"])
}

func TestReplayer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := NewReplayer(1).Run(ctx, strings.NewReader("AMZN,3.00\n"), &recordingReceiver{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}

func TestParseTick(t *testing.T) {
	tick, err := ParseTick([]string{" amzn ", "3.10"})
	require.NoError(t, err)
	assert.Equal(t, "AMZN", tick.EquityCode)
	assert.True(t, tick.Price.Equal(decimal.RequireFromString("3.1")))

	_, err = ParseTick([]string{"AMZN"})
	assert.Error(t, err)
	_, err = ParseTick([]string{"", "3"})
	assert.Error(t, err)
}
