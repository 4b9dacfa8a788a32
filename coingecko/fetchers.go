package coingecko

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

// Point is a single price observation.
type Point struct {
	At    time.Time
	Price decimal.Decimal
}

// HistoryWindow is the span of history returned by History.
const HistoryWindow = 24 * time.Hour

// Spot returns the current bitcoin price in the given currency (e.g. "usd").
func (c *Client) Spot(ctx context.Context, currency string) (decimal.Decimal, error) {
	currency = strings.ToLower(currency)
	q := url.Values{}
	q.Set("ids", coinID)
	q.Set("vs_currencies", currency)
	body, err := c.get(ctx, "/simple/price", q)
	if err != nil {
		return decimal.Zero, err
	}

	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	v, err := jsonpath.Get(fmt.Sprintf("$.%s.%s", coinID, currency), doc)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: no %s price: %v", ErrMalformedResponse, currency, err)
	}
	n, ok := v.(json.Number)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s price is %T", ErrMalformedResponse, currency, v)
	}
	price, err := decimal.NewFromString(n.String())
	if err != nil || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: invalid %s price %q", ErrMalformedResponse, currency, n)
	}
	return price, nil
}

// History returns the bitcoin prices of the last 24 hours, oldest first.
//
// The window is anchored on the most recent point returned, not on the local clock.
func (c *Client) History(ctx context.Context, currency string) ([]Point, error) {
	currency = strings.ToLower(currency)
	q := url.Values{}
	q.Set("vs_currency", currency)
	q.Set("days", "2")
	body, err := c.get(ctx, "/coins/"+coinID+"/market_chart", q)
	if err != nil {
		return nil, err
	}

	var chart struct {
		Prices [][]json.Number `json:"prices"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&chart); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if chart.Prices == nil {
		return nil, fmt.Errorf("%w: missing prices", ErrMalformedResponse)
	}

	points := make([]Point, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		if len(p) < 2 {
			return nil, fmt.Errorf("%w: price point %v", ErrMalformedResponse, p)
		}
		ms, err := p[0].Int64()
		if err != nil {
			// some timestamps come back as floats.
			f, ferr := p[0].Float64()
			if ferr != nil {
				return nil, fmt.Errorf("%w: timestamp %q", ErrMalformedResponse, p[0])
			}
			ms = int64(f)
		}
		price, err := decimal.NewFromString(p[1].String())
		if err != nil {
			return nil, fmt.Errorf("%w: price %q", ErrMalformedResponse, p[1])
		}
		points = append(points, Point{At: time.UnixMilli(ms).UTC(), Price: price})
	}
	return lastWindow(points, HistoryWindow), nil
}

// lastWindow sorts points and keeps those within d of the newest one.
func lastWindow(points []Point, d time.Duration) []Point {
	if len(points) == 0 {
		return points
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].At.Before(points[j].At) })
	from := points[len(points)-1].At.Add(-d)
	i := sort.Search(len(points), func(i int) bool { return !points[i].At.Before(from) })
	return points[i:]
}
