package importer

import (
	"bytes"
	"encoding/csv"
)

var templateExample = map[string]string{
	"name":              "Sunbeam Energy",
	"title":             "Residential solar installers",
	"short_description": "Rooftop PV and battery storage",
	"country":           "Brazil",
	"state":             "SP",
	"city":              "Campinas",
	"address":           "Rua das Flores 120",
	"phone":             "+55 19 5555 0100",
	"revenue":           "1M-5M",
	"foundation_year":   "2012",
	"members_count":     "35",
	"social_links":      "https://sunbeam.example.com;https://linkedin.com/company/sunbeam",
	"tags":              "residential;storage",
	"status":            "pending",
}

// Template returns a CSV document with the full header and one example row.
func Template() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	example := make([]string, len(Columns))
	for i, col := range Columns {
		example[i] = templateExample[col]
	}

	// Writes to a bytes.Buffer cannot fail.
	_ = w.Write(Columns)
	_ = w.Write(example)
	w.Flush()

	return buf.Bytes()
}
