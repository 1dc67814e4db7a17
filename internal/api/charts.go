package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/vmc-listener/internal/httputil"
)

// maxChartPoints bounds the samples drawn per series.
const maxChartPoints = 5000

// handleBlendShapeChart renders the weights of one or all blend shapes of a
// recorded session as an HTML line chart.
func (s *Server) handleBlendShapeChart(w http.ResponseWriter, r *http.Request) {
	if !s.requireSessions(w) {
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		httputil.BadRequest(w, "missing 'session_id' parameter")
		return
	}

	names := []string{r.URL.Query().Get("name")}
	if names[0] == "" {
		var err error
		if names, err = s.sessions.BlendShapeNames(sessionID); err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "VMC Blend Shapes", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Blend-shape weights", Subtitle: fmt.Sprintf("session=%s shapes=%d", sessionID, len(names))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25, Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "weight", Min: 0, Max: 1}),
	)

	var start int64
	for _, name := range names {
		points, err := s.sessions.BlendShapeSeries(sessionID, name)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		stride := len(points)/maxChartPoints + 1
		data := make([]opts.LineData, 0, len(points)/stride+1)
		for i := 0; i < len(points); i += stride {
			p := points[i]
			if start == 0 {
				start = p.Time.UnixNano()
			}
			secs := float64(p.Time.UnixNano()-start) / 1e9
			data = append(data, opts.LineData{Value: []interface{}{secs, p.Weight}})
		}
		line.AddSeries(name, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
