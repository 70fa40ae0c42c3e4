package venue

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// orderAction is the signed payload structure from §6: asset_index,
// is_buy, price, size, reduce_only, time_in_force, plus the monotonic
// nonce that is part of what gets signed, not a separate header, so a
// replayed old nonce fails signature verification rather than a
// nonce-freshness check alone.
type orderAction struct {
	AssetIndex   int     `json:"asset_index"`
	IsBuy        bool    `json:"is_buy"`
	Price        string  `json:"price"`
	Size         string  `json:"size"`
	ReduceOnly   bool    `json:"reduce_only"`
	TimeInForce  string  `json:"time_in_force"`
	Nonce        int64   `json:"nonce"`
}

// eip712Signature is the {r, s, v} triple format §6 specifies.
type eip712Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V int    `json:"v"`
}

// EIP-712 type hashes for the order-action typed data, computed once. The
// domain carries no verifyingContract — the reference venue's action API
// binds to chain-id alone, unlike the teacher's CTFExchange/NegRiskCTFExchange
// contract-address binding.
var (
	domainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId)",
	))
	orderActionTypeHash = crypto.Keccak256Hash([]byte(
		"OrderAction(uint32 assetIndex,bool isBuy,string price,string size,bool reduceOnly,string timeInForce,int64 nonce)",
	))
)

const (
	domainName    = "ReferenceVenue"
	domainVersion = "1"
)

func domainSeparator() common.Hash {
	var buf []byte
	buf = append(buf, domainTypeHash.Bytes()...)
	buf = append(buf, crypto.Keccak256Hash([]byte(domainName)).Bytes()...)
	buf = append(buf, crypto.Keccak256Hash([]byte(domainVersion)).Bytes()...)
	buf = append(buf, common.LeftPadBytes(big.NewInt(referenceChainID).Bytes(), 32)...)
	return crypto.Keccak256Hash(buf)
}

// signOrderAction signs action as EIP-712 typed data with the wallet's
// key, returning the {r, s, v} triple the venue expects.
func signOrderAction(w *wallet, action orderAction) (eip712Signature, error) {
	var structBuf []byte
	structBuf = append(structBuf, orderActionTypeHash.Bytes()...)
	structBuf = append(structBuf, common.LeftPadBytes(big.NewInt(int64(action.AssetIndex)).Bytes(), 32)...)
	structBuf = append(structBuf, common.LeftPadBytes(boolToBig(action.IsBuy).Bytes(), 32)...)
	structBuf = append(structBuf, crypto.Keccak256Hash([]byte(action.Price)).Bytes()...)
	structBuf = append(structBuf, crypto.Keccak256Hash([]byte(action.Size)).Bytes()...)
	structBuf = append(structBuf, common.LeftPadBytes(boolToBig(action.ReduceOnly).Bytes(), 32)...)
	structBuf = append(structBuf, crypto.Keccak256Hash([]byte(action.TimeInForce)).Bytes()...)
	structBuf = append(structBuf, common.LeftPadBytes(big.NewInt(action.Nonce).Bytes(), 32)...)
	structHash := crypto.Keccak256Hash(structBuf)

	var rawBuf []byte
	rawBuf = append(rawBuf, 0x19, 0x01)
	rawBuf = append(rawBuf, domainSeparator().Bytes()...)
	rawBuf = append(rawBuf, structHash.Bytes()...)
	msgHash := crypto.Keccak256Hash(rawBuf)

	sig, err := crypto.Sign(msgHash.Bytes(), w.key)
	if err != nil {
		return eip712Signature{}, fmt.Errorf("venue: sign order action: %w", err)
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	v := int(sig[64]) + 27

	return eip712Signature{R: "0x" + r.Text(16), S: "0x" + s.Text(16), V: v}, nil
}

func boolToBig(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}
