package dataset

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethcryo/cryo/internal/rpcclient"
)

// rpcBlock is the subset of eth_getBlockByNumber's result every block- and
// transaction-granularity dataset needs. Unused fields are left as
// json.RawMessage / omitted rather than modeled, matching the teacher's
// practice in internal/rpc/types.go of only decoding what a caller reads.
type rpcBlock struct {
	Number           string        `json:"number"`
	Hash             string        `json:"hash"`
	ParentHash       string        `json:"parentHash"`
	Timestamp        string        `json:"timestamp"`
	Miner            string        `json:"miner"`
	GasLimit         string        `json:"gasLimit"`
	GasUsed          string        `json:"gasUsed"`
	BaseFeePerGas    string        `json:"baseFeePerGas"`
	Size             string        `json:"size"`
	ExtraData        string        `json:"extraData"`
	Transactions     []rpcTx       `json:"transactions"`
}

type rpcTx struct {
	Hash                 string `json:"hash"`
	BlockNumber          string `json:"blockNumber"`
	BlockHash            string `json:"blockHash"`
	TransactionIndex     string `json:"transactionIndex"`
	From                 string `json:"from"`
	To                   string `json:"to"`
	Value                string `json:"value"`
	Gas                  string `json:"gas"`
	GasPrice             string `json:"gasPrice"`
	MaxFeePerGas         string `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
	Nonce                string `json:"nonce"`
	Input                string `json:"input"`
	Type                 string `json:"type"`
}

type rpcReceipt struct {
	TransactionHash   string    `json:"transactionHash"`
	BlockNumber       string    `json:"blockNumber"`
	TransactionIndex  string    `json:"transactionIndex"`
	Status            string    `json:"status"`
	GasUsed           string    `json:"gasUsed"`
	CumulativeGasUsed string    `json:"cumulativeGasUsed"`
	EffectiveGasPrice string    `json:"effectiveGasPrice"`
	ContractAddress   string    `json:"contractAddress"`
	Logs              []rpcLog  `json:"logs"`
}

type rpcLog struct {
	Address          string   `json:"address"`
	Topics           []string `json:"topics"`
	Data             string   `json:"data"`
	BlockNumber      string   `json:"blockNumber"`
	TransactionHash  string   `json:"transactionHash"`
	TransactionIndex string   `json:"transactionIndex"`
	LogIndex         string   `json:"logIndex"`
	Removed          bool     `json:"removed"`
}

func fetchBlockByNumber(ctx context.Context, c *rpcclient.Client, block uint64, fullTx bool) (*rpcBlock, error) {
	raw, err := c.Call(ctx, "eth_getBlockByNumber", rpcclient.Uint64ToHex(block), fullTx)
	if err != nil {
		return nil, err
	}
	var b rpcBlock
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decode eth_getBlockByNumber(%d): %w", block, err)
	}
	return &b, nil
}

func fetchBlockReceipts(ctx context.Context, c *rpcclient.Client, block uint64) ([]rpcReceipt, error) {
	raw, err := c.Call(ctx, "eth_getBlockReceipts", rpcclient.Uint64ToHex(block))
	if err != nil {
		return nil, err
	}
	var receipts []rpcReceipt
	if err := json.Unmarshal(raw, &receipts); err != nil {
		return nil, fmt.Errorf("decode eth_getBlockReceipts(%d): %w", block, err)
	}
	return receipts, nil
}

func mustUint64(s string) uint64 {
	v, _ := rpcclient.ParseHexUint64(s)
	return v
}

func mustU256(s string) [32]byte {
	v, _ := rpcclient.ParseHexU256(s)
	return v
}

// hexBytes decodes an arbitrary-length "0x"-prefixed byte string (calldata,
// log data, extra data) — unlike mustU256/ParseHexBigInt, this preserves
// leading zero bytes, since the value isn't numeric.
func hexBytes(s string) []byte {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}
