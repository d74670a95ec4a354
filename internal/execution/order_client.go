package execution

import (
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	json "github.com/goccy/go-json"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/edgeline/edgeline/pkg/types"
)

// TokenResolver maps an event id and outcome to the venue's outcome
// token id. Live submission fails cleanly when no token exists for a
// decision.
type TokenResolver func(eventID, outcome string) (string, error)

// LiveVenue signs and submits real CLOB orders. One decision becomes
// one BUY order on the decision's outcome token at the market-implied
// price the decision was made on.
type LiveVenue struct {
	apiKey        string
	secret        string
	passphrase    string
	privateKey    *ecdsa.PrivateKey
	address       string // EOA address (signer)
	proxyAddress  string // proxy address (maker/funder)
	signatureType model.SignatureType
	baseURL       string
	resolver      TokenResolver
	orderBuilder  builder.ExchangeOrderBuilder
	httpClient    *http.Client
	logger        *zap.Logger
}

// LiveVenueConfig holds configuration for the live venue.
type LiveVenueConfig struct {
	APIKey        string
	Secret        string
	Passphrase    string
	PrivateKey    string
	Address       string
	ProxyAddress  string
	SignatureType int
	BaseURL       string
	Resolver      TokenResolver
	Logger        *zap.Logger
}

// NewLiveVenue creates a live venue from API credentials and a signing
// key.
func NewLiveVenue(cfg *LiveVenueConfig) (*LiveVenue, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	if cfg.Resolver == nil {
		return nil, fmt.Errorf("token resolver is required")
	}

	// Derive EOA address if not provided
	address := cfg.Address
	if address == "" {
		publicKey := privateKey.Public()
		publicKeyECDSA, _ := publicKey.(*ecdsa.PublicKey)
		address = crypto.PubkeyToAddress(*publicKeyECDSA).Hex()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://clob.polymarket.com"
	}

	chainID := big.NewInt(137) // Polygon mainnet
	orderBuilder := builder.NewExchangeOrderBuilderImpl(chainID, nil)

	return &LiveVenue{
		apiKey:        cfg.APIKey,
		secret:        cfg.Secret,
		passphrase:    cfg.Passphrase,
		privateKey:    privateKey,
		address:       address,
		proxyAddress:  cfg.ProxyAddress,
		signatureType: model.SignatureType(cfg.SignatureType),
		baseURL:       baseURL,
		resolver:      cfg.Resolver,
		orderBuilder:  orderBuilder,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        cfg.Logger,
	}, nil
}

// signedOrderJSON is the wire format for a signed order.
type signedOrderJSON struct {
	Salt          int64  `json:"salt"` // integer, not string
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Side          string `json:"side"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	SignatureType int    `json:"signatureType"` // integer, not string
	Signature     string `json:"signature"`
}

// orderResponse is the venue's answer to an order post.
type orderResponse struct {
	OrderID string  `json:"orderID"`
	Status  string  `json:"status"`
	Price   float64 `json:"price,string"`
	Size    float64 `json:"size,string"`
}

// Submit signs one BUY order for the decision's outcome token and
// posts it.
func (v *LiveVenue) Submit(ctx context.Context, d *types.Decision) (*types.SubmissionResult, error) {
	price := d.MarketProbability
	if price <= 0 || price >= 1 {
		return nil, &types.SubmissionError{
			Code:       "INVALID_PRICE",
			Message:    fmt.Sprintf("market probability %.4f is not a valid price", price),
			DecisionID: d.ID,
		}
	}

	tokenID, err := v.resolver(d.EventID, d.Outcome)
	if err != nil {
		return nil, &types.SubmissionError{
			Code:       "TOKEN_NOT_FOUND",
			Message:    fmt.Sprintf("resolve token for %s/%s: %v", d.EventID, d.Outcome, err),
			DecisionID: d.ID,
		}
	}

	// Maker funds come from the proxy when one is configured; the EOA
	// always signs
	makerAddress := v.address
	signerAddress := v.address
	if v.proxyAddress != "" {
		makerAddress = v.proxyAddress
	}

	orderData := &model.OrderData{
		Maker:         makerAddress,
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       tokenID,
		MakerAmount:   usdToRawAmount(d.Stake),
		TakerAmount:   usdToRawAmount(d.Stake / price),
		Side:          model.BUY, // buying outcome tokens with USDC
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        signerAddress,
		Expiration:    "0",
		SignatureType: v.signatureType,
	}

	signedOrder, err := v.orderBuilder.BuildSignedOrder(v.privateKey, orderData, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("build order: %w", err)
	}

	v.logger.Info("order-built",
		zap.String("decision-id", d.ID),
		zap.String("token-id", tokenID),
		zap.Float64("stake", d.Stake),
		zap.Float64("price", price))

	resp, err := v.postOrder(ctx, signedOrder)
	if err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}

	result := &types.SubmissionResult{
		SubmissionID: resp.OrderID,
		Price:        resp.Price,
	}
	if result.Price == 0 {
		result.Price = price
	}

	switch strings.ToLower(resp.Status) {
	case "matched", "live", "delayed":
		result.Accepted = true
	case "unmatched":
		return result, &types.SubmissionError{
			Code:       types.ErrUnmatched,
			Message:    "order posted but not matched",
			DecisionID: d.ID,
		}
	default:
		return result, &types.SubmissionError{
			Code:       types.ErrUnknownStatus,
			Message:    fmt.Sprintf("unexpected order status %q", resp.Status),
			DecisionID: d.ID,
		}
	}

	return result, nil
}

func (v *LiveVenue) postOrder(ctx context.Context, order *model.SignedOrder) (*orderResponse, error) {
	sideStr := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}

	jsonOrder := signedOrderJSON{
		Salt:          order.Salt.Int64(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenId.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    order.Expiration.String(),
		Nonce:         order.Nonce.String(),
		FeeRateBps:    order.FeeRateBps.String(),
		SignatureType: int(order.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(order.Signature),
	}

	// "owner" is the API key, not the maker address
	orderRequest := map[string]interface{}{
		"order":     jsonOrder,
		"owner":     v.apiKey,
		"orderType": "GTC",
	}

	reqBody, err := json.Marshal(orderRequest)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	method := http.MethodPost
	requestPath := "/order"

	signaturePayload := timestamp + method + requestPath + string(reqBody)

	// The API secret is URL-safe base64, and so is the signature
	secretBytes, err := base64.URLEncoding.DecodeString(v.secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}

	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(signaturePayload))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, method, v.baseURL+requestPath, strings.NewReader(string(reqBody)))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// POLY_ADDRESS carries the EOA address, not the proxy
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("POLY_API_KEY", v.apiKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", v.passphrase)
	req.Header.Set("POLY_ADDRESS", v.address)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var orderResp orderResponse
	if err := json.Unmarshal(body, &orderResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &orderResp, nil
}

// Mode returns the venue mode.
func (v *LiveVenue) Mode() string { return ModeLive }

// Close releases the HTTP client's idle connections.
func (v *LiveVenue) Close() error {
	v.httpClient.CloseIdleConnections()
	return nil
}

func usdToRawAmount(usd float64) string {
	rawAmount := int64(usd * 1000000)
	return fmt.Sprintf("%d", rawAmount)
}
