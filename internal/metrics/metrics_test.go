package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestLikesTotalIncrements(t *testing.T) {
	before := testutil.ToFloat64(LikesTotal.WithLabelValues("like"))
	LikesTotal.WithLabelValues("like").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(LikesTotal.WithLabelValues("like")))
}

func TestHTTPRequestsTotalLabels(t *testing.T) {
	c := HTTPRequestsTotal.WithLabelValues("/users/{id}", "GET", "200")
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
