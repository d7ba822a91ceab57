package search

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

// sha256 of an empty payload.
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// sigV4Transport signs every request with AWS Signature Version 4 before
// handing it to next.
type sigV4Transport struct {
	next        http.RoundTripper
	signer      *v4.Signer
	credentials aws.CredentialsProvider
	region      string
	service     string
	now         func() time.Time
}

func newSigV4Transport(next http.RoundTripper, creds aws.CredentialsProvider, region, service string) *sigV4Transport {
	return &sigV4Transport{
		next:        next,
		signer:      v4.NewSigner(),
		credentials: creds,
		region:      region,
		service:     service,
		now:         time.Now,
	}
}

func (t *sigV4Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	creds, err := t.credentials.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve AWS credentials: %w", err)
	}

	signed := req.Clone(ctx)
	hash, err := payloadHash(signed)
	if err != nil {
		return nil, err
	}
	signed.Header.Set("X-Amz-Content-Sha256", hash)

	if err := t.signer.SignHTTP(ctx, creds, signed, hash, t.service, t.region, t.now()); err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}

	return t.next.RoundTrip(signed)
}

// payloadHash buffers the body so it can be hashed and still be sent.
func payloadHash(req *http.Request) (string, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return emptyPayloadHash, nil
	}

	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return "", fmt.Errorf("failed to read request body: %w", err)
	}

	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}

	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

// legacyProductTransport stamps the product header the v8 client insists on
// onto responses from clusters that predate it (Elasticsearch before 7.14,
// Amazon OpenSearch Service domains).
type legacyProductTransport struct {
	next http.RoundTripper
}

func (t *legacyProductTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if res.Header.Get(productHeader) == "" {
		res.Header.Set(productHeader, productName)
	}
	return res, nil
}
