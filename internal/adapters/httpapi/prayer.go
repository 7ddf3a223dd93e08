package httpapi

import (
	"net/http"
	"strconv"

	"github.com/Guilhem-Bonnet/hidaya/internal/app"
	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/httpjson"
)

func (s *Server) handlePrayerTimes(w http.ResponseWriter, r *http.Request) {
	at, ok := coordinatesParam(w, r)
	if !ok {
		return
	}
	times, err := s.deps.Prayer.Today(r.Context(), at)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, times)
}

// coordinatesParam lit ?lat=&lon=; les deux sont requis ensemble.
func coordinatesParam(w http.ResponseWriter, r *http.Request) (*domain.Coordinates, bool) {
	q := r.URL.Query()
	rawLat, rawLon := q.Get("lat"), q.Get("lon")
	if rawLat == "" && rawLon == "" {
		return nil, true
	}
	lat, errLat := strconv.ParseFloat(rawLat, 64)
	lon, errLon := strconv.ParseFloat(rawLon, 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		httpjson.WriteCodedError(w, http.StatusBadRequest, app.CodeInvalidParams, "lat and lon must be valid coordinates")
		return nil, false
	}
	return &domain.Coordinates{Latitude: lat, Longitude: lon}, true
}
