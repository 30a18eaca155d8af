package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/samirrijal/metromap/internal/core/domain"
)

// rawPlace accepts both the exported station list ({lat, lon}) and raw
// station dumps that spell the coordinates out ({latitude, longitude}).
type rawPlace struct {
	Name     string `json:"name"`
	Location struct {
		Lat       float64 `json:"lat"`
		Lon       float64 `json:"lon"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

func (r rawPlace) point() domain.GeoPoint {
	if r.Location.Lat == 0 && r.Location.Lon == 0 {
		return domain.GeoPoint{Lat: r.Location.Latitude, Lon: r.Location.Longitude}
	}
	return domain.GeoPoint{Lat: r.Location.Lat, Lon: r.Location.Lon}
}

// readSource loads places from a local path or an http(s) URL. Zip archives
// are read as GTFS feeds, anything else as a JSON station list.
func readSource(ctx context.Context, client *http.Client, src string) ([]domain.NamedPlace, error) {
	var (
		body []byte
		err  error
	)
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		body, err = download(ctx, client, src)
	} else {
		body, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(strings.ToLower(src), ".zip") || bytes.HasPrefix(body, []byte("PK\x03\x04")) {
		zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
		if err != nil {
			return nil, fmt.Errorf("open zip: %w", err)
		}
		return readGTFSStops(zr)
	}
	return readStationList(body)
}

func download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func readStationList(data []byte) ([]domain.NamedPlace, error) {
	var raw []rawPlace
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse station list: %w", err)
	}
	places := make([]domain.NamedPlace, 0, len(raw))
	for _, r := range raw {
		if p, ok := newPlace(r.Name, r.point()); ok {
			places = append(places, p)
		}
	}
	return places, nil
}

// readGTFSStops reads stops.txt. Platforms and entrances that belong to a
// parent station are skipped so each station is named once.
func readGTFSStops(zr *zip.Reader) ([]domain.NamedPlace, error) {
	f, err := openCSV(zr, "stops.txt")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	cols := indexColumns(header)

	var places []domain.NamedPlace
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if getField(record, cols, "parent_station") != "" {
			continue
		}

		lat, _ := strconv.ParseFloat(getField(record, cols, "stop_lat"), 64)
		lon, _ := strconv.ParseFloat(getField(record, cols, "stop_lon"), 64)
		if p, ok := newPlace(getField(record, cols, "stop_name"), domain.GeoPoint{Lat: lat, Lon: lon}); ok {
			places = append(places, p)
		}
	}
	return places, nil
}

// newPlace cleans the name and rejects unnamed or unlocated entries.
func newPlace(name string, at domain.GeoPoint) (domain.NamedPlace, bool) {
	name = cleanUpName(name)
	if name == "" || (at.Lat == 0 && at.Lon == 0) ||
		at.Lat < -90 || at.Lat > 90 || at.Lon < -180 || at.Lon > 180 {
		return domain.NamedPlace{}, false
	}
	return domain.NamedPlace{Name: name, Location: at}, true
}

func openCSV(zr *zip.Reader, name string) (io.ReadCloser, error) {
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, name) {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("file %s not found in zip", name)
}

func indexColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		// Strip BOM from first column
		col = strings.TrimPrefix(col, "\xef\xbb\xbf")
		m[strings.TrimSpace(col)] = i
	}
	return m
}

func getField(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
