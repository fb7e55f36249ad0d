package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/sells-group/geocode-etl/internal/etlerr"
)

const keyParam = "gatekeeperKey"

// aisResponse is the subset of the AIS search response we read.
type aisResponse struct {
	Features []aisFeature `json:"features"`
}

type aisFeature struct {
	Geometry *struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
}

// Geocode implements Client. Transport failures and non-200 responses are
// request errors; a body without features[0].geometry.coordinates is a
// format error.
func (g *geocoder) Geocode(ctx context.Context, address string) (Coordinate, error) {
	log := zap.L().With(zap.String("component", "geocode.ais"), zap.String("address", address))

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return Coordinate{}, etlerr.Wrap(etlerr.ErrGeocodingRequest, err, "geocode: ais rate limit")
		}
	}

	reqURL, err := g.requestURL(address)
	if err != nil {
		return Coordinate{}, err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Coordinate{}, etlerr.Wrap(etlerr.ErrGeocodingRequest, err, "geocode: ais build request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Error("ais request failed", zap.Error(err))
		return Coordinate{}, etlerr.Wrap(etlerr.ErrGeocodingRequest, err, "geocode: ais request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		log.Error("ais request failed", zap.Int("status", resp.StatusCode))
		return Coordinate{}, etlerr.Errorf(etlerr.ErrGeocodingRequest, "geocode: ais returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Coordinate{}, etlerr.Wrap(etlerr.ErrGeocodingRequest, err, "geocode: ais read body")
	}

	coord, err := decodeCoordinate(body)
	if err != nil {
		log.Error("ais response unusable", zap.Error(err))
		return Coordinate{}, err
	}

	log.Debug("geocoded", zap.Float64("x", coord.X), zap.Float64("y", coord.Y))
	return coord, nil
}

func (g *geocoder) requestURL(address string) (string, error) {
	u, err := url.Parse(g.baseURL + url.PathEscape(address))
	if err != nil {
		return "", etlerr.Wrap(etlerr.ErrGeocodingRequest, err, "geocode: ais parse url")
	}
	q := u.Query()
	q.Set(keyParam, g.key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// decodeCoordinate reads features[0].geometry.coordinates from an AIS body.
func decodeCoordinate(body []byte) (Coordinate, error) {
	var aisResp aisResponse
	if err := json.Unmarshal(body, &aisResp); err != nil {
		return Coordinate{}, etlerr.Wrap(etlerr.ErrGeocodingFormat, err, "geocode: ais parse response")
	}

	if len(aisResp.Features) == 0 {
		return Coordinate{}, etlerr.New(etlerr.ErrGeocodingFormat, "geocode: ais response has no features")
	}

	geometry := aisResp.Features[0].Geometry
	if geometry == nil {
		return Coordinate{}, etlerr.New(etlerr.ErrGeocodingFormat, "geocode: ais feature has no geometry")
	}
	if len(geometry.Coordinates) < 2 {
		return Coordinate{}, etlerr.Errorf(etlerr.ErrGeocodingFormat,
			"geocode: ais geometry has %d coordinates, want 2", len(geometry.Coordinates))
	}

	return Coordinate{X: geometry.Coordinates[0], Y: geometry.Coordinates[1]}, nil
}
