package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRoundMoneyHalfEven(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"10.005", "10"},
		{"10.015", "10.02"},
		{"10.025", "10.02"},
		{"10.035", "10.04"},
		{"-10.025", "-10.02"},
		{"10.001", "10"},
		{"10.999", "11"},
	}
	for _, tc := range cases {
		d, err := decimal.NewFromString(tc.in)
		require.NoError(t, err)
		require.Equal(t, tc.want, RoundMoney(d).String(), "RoundMoney(%s)", tc.in)
	}
}

func TestRoundQuantityHalfEven(t *testing.T) {
	d, err := decimal.NewFromString("2.0005")
	require.NoError(t, err)
	require.Equal(t, "2", RoundQuantity(d).String())

	d, err = decimal.NewFromString("2.0015")
	require.NoError(t, err)
	require.Equal(t, "2.002", RoundQuantity(d).String())
}

func TestPagination(t *testing.T) {
	p := NewPagination(2, 20, 45)
	require.Equal(t, 2, p.Page)
	require.Equal(t, 20, p.PerPage)
	require.Equal(t, 45, p.Total)
	require.Equal(t, 3, p.TotalPages)

	empty := NewPagination(1, 20, 0)
	require.Equal(t, 0, empty.TotalPages)
}
