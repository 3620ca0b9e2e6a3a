package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deferlink_resolutions_total",
		Help: "Deferred-link resolution lookups by outcome.",
	}, []string{"outcome"})

	linksCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deferlink_links_created_total",
		Help: "Links created through the SDK API.",
	})
)
