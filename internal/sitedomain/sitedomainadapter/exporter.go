// Copyright © 2022 PageForge
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sitedomainadapter

import (
	"encoding/json"

	"github.com/jinzhu/gorm"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pageforge/pageforge/internal/sitedomain"
)

// Exporter exposes the number of in-flight domain setup flows per step.
type Exporter struct {
	db *gorm.DB

	setupsDesc *prometheus.Desc
}

// NewExporter returns a new Exporter.
func NewExporter(db *gorm.DB) *Exporter {
	return &Exporter{
		db: db,

		setupsDesc: prometheus.NewDesc(
			"pageforge_domain_setups",
			"Number of persisted domain setup flows by step",
			[]string{"step"},
			nil,
		),
	}
}

// Describe implements the prometheus.Collector interface.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.setupsDesc
}

// Collect implements the prometheus.Collector interface.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	var models []setupStateModel

	err := e.db.Find(&models).Error
	if err != nil {
		return
	}

	counts := make(map[sitedomain.Step]float64)

	for _, model := range models {
		var state sitedomain.SetupState

		if json.Unmarshal([]byte(model.State), &state) != nil {
			continue
		}

		counts[sitedomain.Reduce(state)]++
	}

	for step, count := range counts {
		ch <- prometheus.MustNewConstMetric(e.setupsDesc, prometheus.GaugeValue, count, string(step))
	}
}
