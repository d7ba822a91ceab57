package search

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	appconfig "github.com/semmidev/indexcurator/internal/config"
	"github.com/semmidev/indexcurator/internal/domain"
)

const (
	productHeader = "X-Elastic-Product"
	productName   = "Elasticsearch"

	maxErrorBody = 4096
)

type Options struct {
	Host string
	Port int
	Auth appconfig.AuthConfig

	// CACertFile adds a PEM bundle to the system roots.
	CACertFile string
	// RootCAs replaces the system roots entirely.
	RootCAs *x509.CertPool
	// LegacyCluster accepts clusters that do not send the product header.
	LegacyCluster bool
	// Credentials overrides the AWS default credential chain for sigv4.
	Credentials aws.CredentialsProvider
}

// Elasticsearch is an IndexTransport backed by the official client. It only
// ever talks HTTPS with certificate verification on.
type Elasticsearch struct {
	client  *elasticsearch.Client
	address string
}

func NewElasticsearch(ctx context.Context, opts Options) (*Elasticsearch, error) {
	address := "https://" + net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))

	base, err := newHTTPTransport(opts)
	if err != nil {
		return nil, err
	}

	var rt http.RoundTripper = base
	if opts.LegacyCluster {
		rt = &legacyProductTransport{next: rt}
	}

	cfg := elasticsearch.Config{
		Addresses:    []string{address},
		DisableRetry: true,
	}

	switch opts.Auth.Mode {
	case appconfig.AuthSigV4, "":
		creds, region, err := resolveAWS(ctx, opts)
		if err != nil {
			return nil, err
		}
		service := opts.Auth.Service
		if service == "" {
			service = "es"
		}
		rt = newSigV4Transport(rt, creds, region, service)
	case appconfig.AuthBasic:
		cfg.Username = opts.Auth.Username
		cfg.Password = opts.Auth.Password
	case appconfig.AuthNone:
	default:
		return nil, domain.InvalidField("auth.mode", fmt.Sprintf("unsupported mode %q", opts.Auth.Mode))
	}
	cfg.Transport = rt

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &Elasticsearch{client: client, address: address}, nil
}

func newHTTPTransport(opts Options) (*http.Transport, error) {
	roots := opts.RootCAs
	if roots == nil {
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		roots = pool
	}

	if opts.CACertFile != "" {
		pem, err := os.ReadFile(opts.CACertFile)
		if err != nil {
			return nil, domain.InvalidField("ca_cert", err.Error())
		}
		if !roots.AppendCertsFromPEM(pem) {
			return nil, domain.InvalidField("ca_cert", "no certificates found in "+opts.CACertFile)
		}
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{
		MinVersion: tls.VersionTLS12,
		RootCAs:    roots,
	}
	return tr, nil
}

func resolveAWS(ctx context.Context, opts Options) (aws.CredentialsProvider, string, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Auth.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Auth.Region))
	}
	if opts.Auth.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(opts.Auth.Profile))
	}
	switch {
	case opts.Credentials != nil:
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(opts.Credentials))
	case opts.Auth.AccessKey != "":
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.Auth.AccessKey, opts.Auth.SecretKey, opts.Auth.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load AWS config: %w", err)
	}
	if awsCfg.Region == "" {
		return nil, "", domain.InvalidField("auth.region", "is required for sigv4 signing")
	}
	if awsCfg.Credentials == nil {
		return nil, "", domain.InvalidField("auth", "no AWS credentials found")
	}

	return awsCfg.Credentials, awsCfg.Region, nil
}

func (e *Elasticsearch) Address() string {
	return e.address
}

// ListIndices returns the names of every open and closed index.
func (e *Elasticsearch) ListIndices(ctx context.Context) ([]string, error) {
	cat := e.client.Cat.Indices
	res, err := cat(
		cat.WithContext(ctx),
		cat.WithFormat("json"),
		cat.WithH("index"),
		cat.WithExpandWildcards("open,closed"),
	)
	if err != nil {
		return nil, domain.ConnectionError(fmt.Errorf("cat indices on %s: %w", e.address, err))
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, domain.ConnectionError(fmt.Errorf("cat indices on %s: %w", e.address, responseError(res)))
	}

	var rows []struct {
		Index string `json:"index"`
	}
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, domain.ConnectionError(fmt.Errorf("decode cat indices response: %w", err))
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Index != "" {
			names = append(names, row.Index)
		}
	}
	return names, nil
}

// DeleteIndices removes names in a single request. The cluster either
// acknowledges the whole request or the call fails.
func (e *Elasticsearch) DeleteIndices(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	del := e.client.Indices.Delete
	res, err := del(names, del.WithContext(ctx))
	if err != nil {
		return domain.DeletionFailed(fmt.Errorf("delete %s: %w", strings.Join(names, ","), err))
	}
	defer res.Body.Close()

	if res.IsError() {
		return domain.DeletionFailed(fmt.Errorf("delete %s: %w", strings.Join(names, ","), responseError(res)))
	}

	var ack struct {
		Acknowledged bool `json:"acknowledged"`
	}
	if err := json.NewDecoder(res.Body).Decode(&ack); err != nil {
		return domain.DeletionFailed(fmt.Errorf("decode delete response: %w", err))
	}
	if !ack.Acknowledged {
		return domain.DeletionFailed(fmt.Errorf("delete %s: not acknowledged", strings.Join(names, ",")))
	}
	return nil
}

func responseError(res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))

	var payload struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", res.Status(), payload.Error.Type, payload.Error.Reason)
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("%s", res.Status())
	}
	return fmt.Errorf("%s: %s", res.Status(), msg)
}
