package parser

import (
	"encoding/xml"
	"os"
	"strings"
	"sync"

	"fhrs-tracker/models"
	"fhrs-tracker/utils"
)

// xmlEstablishment mirrors one EstablishmentDetail element of an FHRS feed
// file. Every field is optional: missing elements decode to empty strings.
type xmlEstablishment struct {
	FHRSID             string `xml:"FHRSID"`
	BusinessName       string `xml:"BusinessName"`
	BusinessType       string `xml:"BusinessType"`
	AddressLine1       string `xml:"AddressLine1"`
	AddressLine2       string `xml:"AddressLine2"`
	AddressLine3       string `xml:"AddressLine3"`
	AddressLine4       string `xml:"AddressLine4"`
	PostCode           string `xml:"PostCode"`
	RatingValue        string `xml:"RatingValue"`
	RatingDate         string `xml:"RatingDate"`
	LocalAuthorityName string `xml:"LocalAuthorityName"`
	SchemeType         string `xml:"SchemeType"`
	NewRatingPending   string `xml:"NewRatingPending"`
	Geocode            *struct {
		Latitude  string `xml:"Latitude"`
		Longitude string `xml:"Longitude"`
	} `xml:"Geocode"`
}

type xmlFeed struct {
	Establishments []xmlEstablishment `xml:"EstablishmentCollection>EstablishmentDetail"`
}

// Parser converts raw feed files into Records.
type Parser struct {
	logger *utils.Logger
	pool   *utils.WorkerPool
}

// New creates a Parser that decodes up to maxConcurrency files in parallel.
func New(maxConcurrency int, logger *utils.Logger) *Parser {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Parser{
		logger: logger,
		pool:   utils.NewWorkerPool(maxConcurrency, 0),
	}
}

// ParseFiles decodes every file in paths and returns all records found.
// A file that cannot be read or decoded contributes zero records and is
// logged, never fatal. Record order across files is unspecified.
func (p *Parser) ParseFiles(paths []string) []*models.Record {
	var (
		mu      sync.Mutex
		records []*models.Record
		skipped int
	)

	for _, path := range paths {
		path := path
		p.pool.Submit(func() {
			recs, err := p.parseFile(path)
			if err != nil {
				p.logger.Warn("[parser] Skipping %s: %v", path, err)
				mu.Lock()
				skipped++
				mu.Unlock()
				return
			}
			mu.Lock()
			records = append(records, recs...)
			mu.Unlock()
		})
	}
	p.pool.Wait()

	p.logger.Info("[parser] Parsed %d records from %d files (%d files skipped)",
		len(records), len(paths)-skipped, skipped)
	return records
}

func (p *Parser) parseFile(path string) ([]*models.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var feed xmlFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, err
	}

	records := make([]*models.Record, 0, len(feed.Establishments))
	for _, e := range feed.Establishments {
		records = append(records, toRecord(&e))
	}
	p.logger.Debug("[parser] %s: %d establishments", path, len(records))
	return records, nil
}

func toRecord(e *xmlEstablishment) *models.Record {
	r := &models.Record{
		ID:            strings.TrimSpace(e.FHRSID),
		Name:          strings.TrimSpace(e.BusinessName),
		BusinessType:  strings.TrimSpace(e.BusinessType),
		Region:        strings.TrimSpace(e.LocalAuthorityName),
		AddressLine1:  strings.TrimSpace(e.AddressLine1),
		AddressLine2:  strings.TrimSpace(e.AddressLine2),
		AddressLine3:  strings.TrimSpace(e.AddressLine3),
		AddressLine4:  strings.TrimSpace(e.AddressLine4),
		PostCode:      strings.TrimSpace(e.PostCode),
		RatingValue:   strings.TrimSpace(e.RatingValue),
		RatingDate:    strings.TrimSpace(e.RatingDate),
		SchemeType:    strings.TrimSpace(e.SchemeType),
		RatingPending: strings.TrimSpace(e.NewRatingPending),
	}
	if e.Geocode != nil {
		r.Latitude = strings.TrimSpace(e.Geocode.Latitude)
		r.Longitude = strings.TrimSpace(e.Geocode.Longitude)
	}
	return r
}
