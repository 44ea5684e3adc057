package abi_test

import (
	"encoding/hex"
	"math/big"
	"testing"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/omni/tokenbridge-antelope/contract/abi"
)

var (
	addressType, _ = ethabi.NewType("address", "", nil)
	uint256Type, _ = ethabi.NewType("uint256", "", nil)
	stringType, _  = ethabi.NewType("string", "", nil)

	tokenAddr    = common.HexToAddress("0x6f989daff4f485aba94583110d555e7af36e531a")
	receiverAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func word(b []byte, i int) []byte {
	return b[i*abi.WordSize : (i+1)*abi.WordSize]
}

func TestParseSelector(t *testing.T) {
	t.Parallel()

	sel, err := abi.ParseSelector("0x7d056de7")
	require.NoError(t, err)
	require.Equal(t, abi.Selector{0x7d, 0x05, 0x6d, 0xe7}, sel)
	require.Equal(t, "7d056de7", sel.String())

	_, err = abi.ParseSelector("7d056d")
	require.ErrorIs(t, err, abi.ErrInvalidSelector)
	_, err = abi.ParseSelector("zzzzzzzz")
	require.ErrorIs(t, err, abi.ErrInvalidSelector)

	require.Equal(t, abi.MustParseSelector("a9059cbb"), abi.MethodSelector("transfer(address,uint256)"))
}

func TestCallData_StaticArguments(t *testing.T) {
	t.Parallel()

	sel := abi.MustParseSelector("0fbc79cd")
	data := abi.NewCallData(sel).Uint64(7).Bytes()
	require.Len(t, data, 4+32)
	require.Equal(t, sel[:], data[:4])
	require.Equal(t, common.BigToHash(big.NewInt(7)).Bytes(), data[4:])
}

func TestCallData_RoundTrip(t *testing.T) {
	t.Parallel()

	amount := new(uint256.Int).Mul(uint256.NewInt(100), new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18)))
	data := abi.NewCallData(abi.MustParseSelector("7d056de7")).
		Address(tokenAddr).
		Address(receiverAddr).
		Uint256(amount).
		Text("testaccount1").
		Bytes()

	args := ethabi.Arguments{{Type: addressType}, {Type: addressType}, {Type: uint256Type}, {Type: stringType}}
	values, err := args.Unpack(data[4:])
	require.NoError(t, err)
	require.Equal(t, []interface{}{tokenAddr, receiverAddr, amount.ToBig(), "testaccount1"}, values)

	t.Run("should point the string offset past the static block", func(t *testing.T) {
		t.Parallel()
		body := data[4:]
		require.Equal(t, common.BigToHash(big.NewInt(128)).Bytes(), word(body, 3))
		require.Equal(t, common.BigToHash(big.NewInt(12)).Bytes(), word(body, 4))
		require.Len(t, body, 6*abi.WordSize)
	})
}

func TestCallData_MultipleStrings(t *testing.T) {
	t.Parallel()

	data := abi.NewCallData(abi.MustParseSelector("a1d22913")).
		Uint64(12).
		Uint64(4).
		Text("eosio.token").
		Text("eosio").
		Text("TLOS").
		Bytes()
	body := data[4:]

	require.Equal(t, common.BigToHash(big.NewInt(160)).Bytes(), word(body, 2))
	require.Equal(t, common.BigToHash(big.NewInt(224)).Bytes(), word(body, 3))
	require.Equal(t, common.BigToHash(big.NewInt(288)).Bytes(), word(body, 4))

	args := ethabi.Arguments{{Type: uint256Type}, {Type: uint256Type}, {Type: stringType}, {Type: stringType}, {Type: stringType}}
	values, err := args.Unpack(body)
	require.NoError(t, err)
	require.Equal(t, []interface{}{big.NewInt(12), big.NewInt(4), "eosio.token", "eosio", "TLOS"}, values)
}

func TestCallData_PaddingAndEmptyStrings(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		Name string
		Text string
		Size int
	}{
		{"Empty string", "", 2 * abi.WordSize},
		{"One byte", "a", 3 * abi.WordSize},
		{"Exactly one word", "0123456789abcdef0123456789abcdef", 3 * abi.WordSize},
		{"One word and a byte", "0123456789abcdef0123456789abcdef!", 4 * abi.WordSize},
	} {
		t.Logf("Running sub-test %q", test.Name)
		data := abi.NewCallData(abi.MustParseSelector("00000000")).Text(test.Text).Bytes()
		require.Len(t, data[4:], test.Size, "Failed %s", test.Name)

		values, err := ethabi.Arguments{{Type: stringType}}.Unpack(data[4:])
		require.NoError(t, err, "Failed %s", test.Name)
		require.Equal(t, test.Text, values[0], "Failed %s", test.Name)
	}
}

func TestCallData_HexLayout(t *testing.T) {
	t.Parallel()

	data := abi.NewCallData(abi.MustParseSelector("dc2fdf9f")).Uint64(1).Text("ab").Bytes()
	require.Equal(t, "dc2fdf9f"+
		"0000000000000000000000000000000000000000000000000000000000000001"+
		"0000000000000000000000000000000000000000000000000000000000000040"+
		"0000000000000000000000000000000000000000000000000000000000000002"+
		"6162000000000000000000000000000000000000000000000000000000000000",
		hex.EncodeToString(data))
}
