// Package flickr searches the Flickr photo API for photos near a coordinate and downloads
// the resulting images.
package flickr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"

	"github.com/Kilat-Pet-Delivery/service-album/internal/domain/location"
	"github.com/Kilat-Pet-Delivery/service-album/internal/httpclient"
	"github.com/antonholmquist/jason"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	searchMethod   = "flickr.photos.search"
	restPath       = "/services/rest/"
	maxSearchBytes = 4 << 20

	DefaultBaseURL       = "https://api.flickr.com"
	DefaultPerPage       = 21
	DefaultMaxImageBytes = 10 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL        string
	APIKey         string
	PerPage        int
	HalfWidth      float64
	HalfHeight     float64
	RequestsPerSec float64
	Burst          int
	MaxImageBytes  int64
}

// Descriptor identifies one search hit.
type Descriptor struct {
	ID    string
	Title string
	URL   string
}

// SearchResult is the outcome of a random-page search.
type SearchResult struct {
	Page    int
	Pages   int
	Photos  []Descriptor
	Skipped int
}

// Image is a downloaded image payload.
type Image struct {
	Data        []byte
	ContentType string
}

// Client talks to the Flickr REST API.
type Client struct {
	http    *httpclient.Client
	cfg     Config
	limiter *rate.Limiter
	intN    func(int) int
	logger  *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithRandom replaces the page picker's random source. fn must return a value in [0, n).
func WithRandom(fn func(n int) int) Option {
	return func(c *Client) { c.intN = fn }
}

// NewClient creates a Client. Zero config values fall back to the defaults.
func NewClient(hc *httpclient.Client, cfg Config, logger *zap.Logger, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PerPage <= 0 {
		cfg.PerPage = DefaultPerPage
	}
	if cfg.HalfWidth <= 0 {
		cfg.HalfWidth = 1
	}
	if cfg.HalfHeight <= 0 {
		cfg.HalfHeight = 1
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = DefaultMaxImageBytes
	}

	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	burst := max(cfg.Burst, 1)

	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		http:    hc,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		intN:    rand.IntN,
		logger:  logger.Named("flickr"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchURL builds the search request URL. page <= 0 omits the page parameter.
func (c *Client) SearchURL(coord location.Coordinate, page int) string {
	params := url.Values{}
	params.Set("method", searchMethod)
	params.Set("api_key", c.cfg.APIKey)
	params.Set("bbox", BoundingBox(coord, c.cfg.HalfWidth, c.cfg.HalfHeight).String())
	params.Set("safe_search", "1")
	params.Set("extras", "url_m")
	params.Set("format", "json")
	params.Set("nojsoncallback", "1")
	params.Set("per_page", strconv.Itoa(c.cfg.PerPage))
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	return c.cfg.BaseURL + restPath + "?" + params.Encode()
}

// SearchNear runs the discovery query, picks a random reachable page and returns its
// photos. A search that reports zero pages yields an empty result without a second query.
func (c *Client) SearchNear(ctx context.Context, coord location.Coordinate) (*SearchResult, error) {
	discovery, err := c.search(ctx, coord, 0)
	if err != nil {
		return nil, err
	}

	pages, err := pageCount(discovery)
	if err != nil {
		return nil, err
	}
	if pages == 0 {
		c.logger.Debug("search returned no pages",
			zap.Float64("latitude", coord.Latitude),
			zap.Float64("longitude", coord.Longitude),
		)
		return &SearchResult{}, nil
	}

	page, err := PickPage(PageCeiling(pages, c.cfg.PerPage), c.intN)
	if err != nil {
		return nil, &ProviderError{Reason: err.Error()}
	}

	photos, err := c.search(ctx, coord, page)
	if err != nil {
		return nil, err
	}

	items, err := photos.GetObjectArray("photo")
	if err != nil {
		return nil, &ProviderError{Reason: "response is missing photos.photo"}
	}

	result := &SearchResult{Page: page, Pages: pages, Photos: make([]Descriptor, 0, len(items))}
	for _, item := range items {
		d, ok := descriptorOf(item)
		if !ok {
			result.Skipped++
			c.logger.Debug("skipping photo without medium url", zap.String("photo_id", d.ID))
			continue
		}
		result.Photos = append(result.Photos, d)
	}

	c.logger.Info("search completed",
		zap.Int("page", page),
		zap.Int("pages", pages),
		zap.Int("photos", len(result.Photos)),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// Fetch downloads an image. The body is capped at the configured maximum size.
func (c *Client) Fetch(ctx context.Context, imageURL string) (*Image, error) {
	resp, err := c.http.Get(ctx, imageURL)
	if err != nil {
		return nil, &NetworkError{Op: "fetch image", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &ProviderError{StatusCode: resp.StatusCode, Reason: "image download failed"}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxImageBytes+1))
	if err != nil {
		return nil, &NetworkError{Op: "read image", Err: err}
	}
	if int64(len(data)) > c.cfg.MaxImageBytes {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Reason: fmt.Sprintf("image exceeds %d bytes", c.cfg.MaxImageBytes)}
	}
	if len(data) == 0 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Reason: "image body is empty"}
	}
	return &Image{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

// search performs one query and returns the "photos" object of a successful response.
func (c *Client) search(ctx context.Context, coord location.Coordinate, page int) (*jason.Object, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &NetworkError{Op: "rate limit wait", Err: err}
	}

	resp, err := c.http.Get(ctx, c.SearchURL(coord, page))
	if err != nil {
		return nil, &NetworkError{Op: "search", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBytes))
	if err != nil {
		return nil, &NetworkError{Op: "read search response", Err: err}
	}

	obj, parseErr := jason.NewObjectFromBytes(body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := &ProviderError{StatusCode: resp.StatusCode, Reason: "unexpected status"}
		if parseErr == nil {
			perr.Code, perr.Message = failureDetails(obj)
		}
		return nil, perr
	}
	if parseErr != nil {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Reason: "response is not valid JSON"}
	}

	stat, err := obj.GetString("stat")
	if err != nil {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Reason: "response is missing stat"}
	}
	if stat != "ok" {
		code, message := failureDetails(obj)
		return nil, &ProviderError{StatusCode: resp.StatusCode, Code: code, Message: message, Reason: "search failed with stat " + strconv.Quote(stat)}
	}

	photos, err := obj.GetObject("photos")
	if err != nil {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Reason: "response is missing photos"}
	}
	return photos, nil
}

func pageCount(photos *jason.Object) (int, error) {
	pages, err := photos.GetInt64("pages")
	if err != nil {
		// Some responses carry numeric fields as strings.
		s, serr := photos.GetString("pages")
		if serr != nil {
			return 0, &ProviderError{Reason: "response is missing photos.pages"}
		}
		pages, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, &ProviderError{Reason: "photos.pages is not a number"}
		}
	}
	if pages < 0 {
		return 0, &ProviderError{Reason: fmt.Sprintf("photos.pages is negative (%d)", pages)}
	}
	return int(pages), nil
}

func failureDetails(obj *jason.Object) (int, string) {
	code, _ := obj.GetInt64("code")
	message, _ := obj.GetString("message")
	return int(code), message
}

func descriptorOf(item *jason.Object) (Descriptor, bool) {
	var d Descriptor
	if id, err := item.GetString("id"); err == nil {
		d.ID = id
	} else if n, err := item.GetInt64("id"); err == nil {
		d.ID = strconv.FormatInt(n, 10)
	}
	d.Title, _ = item.GetString("title")
	u, err := item.GetString("url_m")
	if err != nil || u == "" {
		return d, false
	}
	d.URL = u
	return d, true
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsProvider reports whether err is a provider response failure.
func IsProvider(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
