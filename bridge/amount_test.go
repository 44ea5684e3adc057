package bridge_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/omni/tokenbridge-antelope/bridge"
)

func TestToHomeAmount(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		Name        string
		Raw         *uint256.Int
		EVMDecimals uint8
		Precision   uint8
		Expected    int64
		Err         error
	}{
		{Name: "one token", Raw: uint256.MustFromDecimal("1000000000000000000"), EVMDecimals: 18, Precision: 4, Expected: 10000},
		{Name: "truncates", Raw: uint256.MustFromDecimal("1999999999999999999"), EVMDecimals: 18, Precision: 4, Expected: 19999},
		{Name: "below precision", Raw: uint256.NewInt(99999999999999), EVMDecimals: 18, Precision: 4, Expected: 0},
		{Name: "same precision", Raw: uint256.NewInt(12345), EVMDecimals: 4, Precision: 4, Expected: 12345},
		{Name: "scales up", Raw: uint256.NewInt(5), EVMDecimals: 2, Precision: 4, Expected: 500},
		{Name: "huge divisor", Raw: uint256.NewInt(5), EVMDecimals: 255, Precision: 0, Expected: 0},
		{Name: "too large", Raw: new(uint256.Int).Lsh(uint256.NewInt(1), 200), EVMDecimals: 18, Precision: 4, Err: bridge.ErrAmountOverflow},
		{Name: "above asset limit", Raw: uint256.NewInt(1 << 62), EVMDecimals: 4, Precision: 4, Err: bridge.ErrAmountOverflow},
	} {
		t.Logf("Running sub-test %q", test.Name)
		res, err := bridge.ToHomeAmount(test.Raw, test.EVMDecimals, test.Precision)
		if test.Err != nil {
			require.ErrorIs(t, err, test.Err, "Failed %s", test.Name)
			continue
		}
		require.NoError(t, err, "Failed %s", test.Name)
		require.Equal(t, test.Expected, res, "Failed %s", test.Name)
	}
}

func TestToEVMAmount(t *testing.T) {
	t.Parallel()

	res, err := bridge.ToEVMAmount(1000000, 4, 18)
	require.NoError(t, err)
	require.Equal(t, "100000000000000000000", res.Dec())

	res, err = bridge.ToEVMAmount(12345, 4, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(123), res.Uint64())

	res, err = bridge.ToEVMAmount(0, 0, 200)
	require.NoError(t, err)
	require.True(t, res.IsZero())

	_, err = bridge.ToEVMAmount(1, 0, 200)
	require.ErrorIs(t, err, bridge.ErrAmountOverflow)

	_, err = bridge.ToEVMAmount(-1, 4, 18)
	require.Error(t, err)

	t.Run("should not lose anything on a round trip to a higher precision", func(t *testing.T) {
		for _, amount := range []int64{1, 10000, 123456789} {
			evmAmount, err := bridge.ToEVMAmount(amount, 4, 18)
			require.NoError(t, err)
			back, err := bridge.ToHomeAmount(evmAmount, 18, 4)
			require.NoError(t, err)
			require.Equal(t, amount, back)
		}
	})
}
