package tx_test

import (
	"testing"

	"github.com/calehh/circle-app/crypto"
	"github.com/calehh/circle-app/tx"
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalCircleTx(t *testing.T) {
	t.Parallel()

	cases := []struct {
		typ     tx.CircleTxType
		payload any
	}{
		{tx.CircleTxTypeJoin, &tx.JoinTx{Fee: 10, Referrer: "0x00000000000000000000000000000000000000aa"}},
		{tx.CircleTxTypeForward, &tx.MemberTx{Position: 7}},
		{tx.CircleTxTypeEnableAutoSign, &tx.AutoSignTx{Position: 1, Epochs: 30}},
		{tx.CircleTxTypeClaim, &tx.EmptyTx{}},
		{tx.CircleTxTypeDeposit, &tx.DepositTx{Amount: 10000}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.typ.String(), func(t *testing.T) {
			t.Parallel()
			dat, err := tx.MarshalCircleTx(&tx.CircleTx{Type: c.typ, Nonce: 3, Sender: []byte{1, 2}, Tx: c.payload})
			require.NoError(t, err)
			btx, err := tx.UnmarshalCircleTx(dat)
			require.NoError(t, err)
			require.Equal(t, c.typ, btx.Type)
			require.Equal(t, uint64(3), btx.Nonce)
			require.Equal(t, []byte{1, 2}, btx.Sender)
			require.Equal(t, c.payload, btx.Tx)
		})
	}
}

func TestUnmarshalCircleTxRejects(t *testing.T) {
	t.Parallel()

	_, err := tx.UnmarshalCircleTx([]byte(`{"type":14,"version":1,"tx":{"amount":1}}`))
	require.ErrorIs(t, err, tx.ErrUnsupportedTxVersion)

	_, err = tx.UnmarshalCircleTx([]byte(`{"type":42}`))
	require.ErrorIs(t, err, tx.ErrUnsupportedTxType)

	_, err = tx.UnmarshalCircleTx([]byte(`not json`))
	require.ErrorIs(t, err, tx.ErrUnsupportedTxType)

	_, err = tx.UnmarshalCircleTx([]byte(`{"type":14,"tx":{"amount":"many"}}`))
	require.Error(t, err)
}

func TestSigDataBindsChainId(t *testing.T) {
	t.Parallel()

	priv := ed25519.GenPrivKey()
	pv := crypto.NewPV(priv)
	btx := &tx.CircleTx{Type: tx.CircleTxTypeForward, Nonce: 1, Tx: &tx.MemberTx{Position: 2}}
	require.NoError(t, pv.SignTx(btx, "circle-test"))
	require.Len(t, btx.Sig, 1)
	require.Equal(t, pv.PublicKey(), btx.Sender)

	dat, err := btx.SigData([]byte("circle-test"))
	require.NoError(t, err)
	require.True(t, priv.PubKey().VerifySignature(dat, btx.Sig[0]))

	other, err := btx.SigData([]byte("other-chain"))
	require.NoError(t, err)
	require.False(t, priv.PubKey().VerifySignature(other, btx.Sig[0]))

	// SigData works on a copy.
	require.Len(t, btx.Sig, 1)
	require.NotEqual(t, []byte("circle-test"), btx.Sig[0])
}
