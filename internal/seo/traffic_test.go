package seo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCTR_Table(t *testing.T) {
	t.Parallel()

	cases := map[int]float64{
		0:  0.01,
		1:  0.28,
		2:  0.16,
		3:  0.11,
		4:  0.08,
		5:  0.06,
		6:  0.01,
		42: 0.01,
	}
	for position, want := range cases {
		require.InDelta(t, want, CTR(position), 1e-9, "position %d", position)
	}
}

func TestEstimateTraffic_ValueIsRoundedProduct(t *testing.T) {
	t.Parallel()

	for position := 0; position <= 8; position++ {
		traffic, value := EstimateTraffic(1234, position, 0.77)
		require.InDelta(t, 1234*CTR(position), traffic, 1e-9)
		require.Equal(t, Round2(traffic*0.77), value)
	}
}

func TestEstimateTraffic_Unranked(t *testing.T) {
	t.Parallel()

	traffic, value := EstimateTraffic(1000, 0, 1.5)
	require.InDelta(t, 10.0, traffic, 1e-9)
	require.Equal(t, 15.0, value)
}

func TestRound2(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1.23, Round2(1.234))
	require.Equal(t, 1.24, Round2(1.235001))
	require.Equal(t, 0.0, Round2(0))
}
