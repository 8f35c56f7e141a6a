package venue

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

// aggregatorV3ABI covers the three Chainlink AggregatorV3Interface methods the
// oracle fallback needs: decimals, latestRoundData and getRoundData. Grounded on the
// ContractClient.Call(opts, method, args...) shape from
// ChoSanghyuk-blackholedex's blackhole.go, simplified to the one contract
// this trader ever calls instead of a generic ABI-driven dispatcher.
const aggregatorV3ABI = `[
	{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"latestRoundData","outputs":[
		{"internalType":"uint80","name":"roundId","type":"uint80"},
		{"internalType":"int256","name":"answer","type":"int256"},
		{"internalType":"uint256","name":"startedAt","type":"uint256"},
		{"internalType":"uint256","name":"updatedAt","type":"uint256"},
		{"internalType":"uint80","name":"answeredInRound","type":"uint80"}
	],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint80","name":"_roundId","type":"uint80"}],"name":"getRoundData","outputs":[
		{"internalType":"uint80","name":"roundId","type":"uint80"},
		{"internalType":"int256","name":"answer","type":"int256"},
		{"internalType":"uint256","name":"startedAt","type":"uint256"},
		{"internalType":"uint256","name":"updatedAt","type":"uint256"},
		{"internalType":"uint80","name":"answeredInRound","type":"uint80"}
	],"stateMutability":"view","type":"function"}
]`

// ChainlinkConfig names the price feed contract address to call per coin.
type ChainlinkConfig struct {
	RPCURL          string
	FeedAddresses   map[string]string // coin -> aggregator contract address
}

// ChainlinkOracle reads Chainlink price feeds over eth_call, used as the
// last-resort settlement path in spec.md §4.10's cascade when neither the
// CLOB fast-settle nor the resolution API have produced an outcome yet.
type ChainlinkOracle struct {
	client *ethclient.Client
	abi    abi.ABI
	feeds  map[string]common.Address
}

func NewChainlinkOracle(cfg ChainlinkConfig) (*ChainlinkOracle, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("venue: chainlink dial: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(aggregatorV3ABI))
	if err != nil {
		return nil, fmt.Errorf("venue: chainlink abi: %w", err)
	}
	feeds := make(map[string]common.Address, len(cfg.FeedAddresses))
	for coin, addr := range cfg.FeedAddresses {
		feeds[coin] = common.HexToAddress(addr)
	}
	return &ChainlinkOracle{client: client, abi: parsed, feeds: feeds}, nil
}

type roundData struct {
	RoundID         *big.Int
	Answer          *big.Int
	StartedAt       *big.Int
	UpdatedAt       *big.Int
	AnsweredInRound *big.Int
}

func (c *ChainlinkOracle) call(ctx context.Context, feed common.Address, method string, args ...interface{}) ([]byte, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("venue: chainlink pack %s: %w", method, err)
	}
	return c.client.CallContract(ctx, ethereum.CallMsg{To: &feed, Data: data}, nil)
}

func (c *ChainlinkOracle) decimals(ctx context.Context, feed common.Address) (uint8, error) {
	raw, err := c.call(ctx, feed, "decimals")
	if err != nil {
		return 0, err
	}
	out, err := c.abi.Unpack("decimals", raw)
	if err != nil || len(out) != 1 {
		return 0, fmt.Errorf("venue: chainlink decode decimals: %w", err)
	}
	return out[0].(uint8), nil
}

func (c *ChainlinkOracle) latestRound(ctx context.Context, feed common.Address) (roundData, error) {
	raw, err := c.call(ctx, feed, "latestRoundData")
	if err != nil {
		return roundData{}, err
	}
	return c.decodeRound(raw)
}

func (c *ChainlinkOracle) roundAt(ctx context.Context, feed common.Address, roundID *big.Int) (roundData, error) {
	raw, err := c.call(ctx, feed, "getRoundData", roundID)
	if err != nil {
		return roundData{}, err
	}
	return c.decodeRound(raw)
}

func (c *ChainlinkOracle) decodeRound(raw []byte) (roundData, error) {
	out, err := c.abi.Unpack("latestRoundData", raw)
	if err != nil || len(out) != 5 {
		return roundData{}, fmt.Errorf("venue: chainlink decode round: %w", err)
	}
	return roundData{
		RoundID:         out[0].(*big.Int),
		Answer:          out[1].(*big.Int),
		StartedAt:       out[2].(*big.Int),
		UpdatedAt:       out[3].(*big.Int),
		AnsweredInRound: out[4].(*big.Int),
	}, nil
}

// PriceAt satisfies settlement.PriceFeed: the closest on-chain round whose
// updatedAt timestamp is at or before timestampMs. Chainlink feeds update on
// deviation/heartbeat, not every second, so the latest round at or before the
// requested time is the correct read, walking backward one round ID at a
// time via getRoundData when the feed has moved on since.
func (c *ChainlinkOracle) PriceAt(ctx context.Context, coin string, timestampMs int64) (money.Price, error) {
	feed, ok := c.feeds[coin]
	if !ok {
		return money.Zero, fmt.Errorf("venue: no chainlink feed configured for %s", coin)
	}

	decimals, err := c.decimals(ctx, feed)
	if err != nil {
		return money.Zero, err
	}

	targetSec := big.NewInt(timestampMs / 1000)
	round, err := c.latestRound(ctx, feed)
	if err != nil {
		return money.Zero, err
	}

	round = walkToRoundAt(ctx, targetSec, round, func(ctx context.Context, id *big.Int) (roundData, error) {
		return c.roundAt(ctx, feed, id)
	})

	return scaledAnswer(round.Answer, decimals), nil
}

// walkToRoundAt steps backward from latest through fetchPrev (one
// getRoundData call per step, decrementing roundID) until it finds a round
// whose UpdatedAt is at or before targetSec, or fetchPrev errors (the feed
// doesn't retain rounds that far back), or roundID reaches zero. Pulled out
// of PriceAt as a pure function of (target, latest round, fetch callback) so
// the walk itself is testable without a live RPC endpoint.
func walkToRoundAt(ctx context.Context, targetSec *big.Int, latest roundData, fetchPrev func(ctx context.Context, id *big.Int) (roundData, error)) roundData {
	round := latest
	for round.UpdatedAt.Cmp(targetSec) > 0 && round.RoundID.Sign() > 0 {
		prevID := new(big.Int).Sub(round.RoundID, big.NewInt(1))
		prev, err := fetchPrev(ctx, prevID)
		if err != nil {
			break
		}
		round = prev
	}
	return round
}

// scaledAnswer converts a Chainlink integer answer (e.g. 6543210000000 at 8
// decimals) into a money.Price without routing through binary float.
func scaledAnswer(answer *big.Int, decimals uint8) money.Price {
	s := answer.String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for len(s) <= int(decimals) {
		s = "0" + s
	}
	if decimals > 0 {
		cut := len(s) - int(decimals)
		s = s[:cut] + "." + s[cut:]
	}
	if neg {
		s = "-" + s
	}
	price, err := money.NewFromString(s)
	if err != nil {
		return money.Zero
	}
	return price
}
