// ColorStdoutWriter prints human-friendly, colorized network activity to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"

	"uavnet-sim/internal/config"
	"uavnet-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints packet events, metrics and state rows using ANSI colors.
type ColorStdoutWriter struct {
	cfg  *config.Config
	out  io.Writer
	once sync.Once
	// Verbose includes transmissions, receptions and hellos, which dominate
	// the event stream.
	Verbose bool
}

var nodePalette = []string{colorRed, colorGreen, colorYellow, colorBlue, colorMagenta, colorCyan}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.Config) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, out: os.Stdout}
}

func nodeColor(id int) string {
	if id < 0 {
		return colorGray
	}
	return nodePalette[id%len(nodePalette)]
}

func eventColor(event string) string {
	switch event {
	case telemetry.EventDelivered:
		return colorGreen
	case telemetry.EventDropped, telemetry.EventCollision:
		return colorRed
	case telemetry.EventSlept:
		return colorYellow
	case telemetry.EventGenerated:
		return colorCyan
	default:
		return colorGray
	}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	c := w.cfg

	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Drones:\t%d\n", c.Simulation.Drones)
	fmt.Fprintf(tw, "Duration:\t%s\n", c.Simulation.Duration)
	fmt.Fprintf(tw, "Seed:\t%d\n", c.Simulation.Seed)
	fmt.Fprintf(tw, "Area (m):\t%.0f x %.0f x %.0f\n", c.Simulation.Area.Length, c.Simulation.Area.Width, c.Simulation.Area.Height)
	fmt.Fprintf(tw, "Bit Rate (Mbit/s):\t%.1f\n", c.Radio.BitRate/1e6)
	fmt.Fprintf(tw, "SINR Threshold (dB):\t%.1f\n", c.Radio.SINRThreshold)
	fmt.Fprintf(tw, "MAC:\t%s\n", c.MAC.Protocol)
	fmt.Fprintf(tw, "Routing:\t%s\n", c.Routing.Protocol)
	fmt.Fprintf(tw, "Mobility:\t%s @ %.1f m/s\n", c.Mobility.Model, c.Mobility.Speed)
	fmt.Fprintf(tw, "Traffic:\t%s\n", c.Traffic.Pattern)
	fmt.Fprintf(tw, "Battery (J):\t%.0f (sleep below %.0f)\n", c.Energy.Initial, c.Energy.Threshold)
	tw.Flush()
	fmt.Fprintln(w.out)
}

// WriteEvent outputs a packet event. Chatty event types are skipped unless Verbose.
func (w *ColorStdoutWriter) WriteEvent(row telemetry.PacketEventRow) error {
	w.once.Do(w.printOverview)
	switch row.Event {
	case telemetry.EventTransmitted, telemetry.EventReceived, telemetry.EventControl:
		if !w.Verbose {
			return nil
		}
	}

	fmt.Fprintf(w.out, "%s[%10.6fs]%s ", colorGray, row.SimTime, colorReset)
	fmt.Fprintf(w.out, "%snode=%d%s ", nodeColor(row.NodeID), row.NodeID, colorReset)
	fmt.Fprintf(w.out, "%s%-11s%s ", eventColor(row.Event), row.Event, colorReset)
	if row.Event != telemetry.EventSlept {
		fmt.Fprintf(w.out, "pkt=%d %s %d->%d", row.PacketID, row.Kind, row.Src, row.Dst)
	}
	if row.Peer >= 0 {
		fmt.Fprintf(w.out, " %speer=%d%s", nodeColor(row.Peer), row.Peer, colorReset)
	}
	if row.Reason != "" {
		fmt.Fprintf(w.out, " %sreason=%s%s", colorRed, row.Reason, colorReset)
	}
	if row.Event == telemetry.EventDelivered {
		fmt.Fprintf(w.out, " %sdelay=%.3fms hops=%d%s", colorGreen, row.Delay, row.Hops, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteEvents outputs multiple packet events.
func (w *ColorStdoutWriter) WriteEvents(rows []telemetry.PacketEventRow) error {
	for _, r := range rows {
		_ = w.WriteEvent(r)
	}
	return nil
}

// WriteMetrics prints a metrics sample.
func (w *ColorStdoutWriter) WriteMetrics(row telemetry.MetricsRow) error {
	w.once.Do(w.printOverview)
	pdrColor := colorGreen
	switch {
	case row.PDR < 50:
		pdrColor = colorRed
	case row.PDR < 90:
		pdrColor = colorYellow
	}
	fmt.Fprintf(w.out, "%s[%10.6fs]%s %sMETRICS%s ", colorGray, row.SimTime, colorReset, colorBlue, colorReset)
	fmt.Fprintf(w.out, "gen=%d dlv=%d ", row.Generated, row.Delivered)
	fmt.Fprintf(w.out, "%spdr=%.1f%%%s ", pdrColor, row.PDR, colorReset)
	fmt.Fprintf(w.out, "%se2e=%.3fms%s ", colorCyan, row.E2EDelayMS, colorReset)
	fmt.Fprintf(w.out, "%sthroughput=%.1fkbps%s ", colorMagenta, row.ThroughputKbps, colorReset)
	fmt.Fprintf(w.out, "hops=%.2f rl=%.2f mac=%.3fms ", row.HopCount, row.RoutingLoad, row.MACDelayMS)
	fmt.Fprintf(w.out, "%scoll=%d%s ", colorRed, row.Collisions, colorReset)
	fmt.Fprintf(w.out, "drops(ttl=%d retry=%d expired=%d asleep=%d)", row.DropsTTL, row.DropsRetry, row.DropsExpired, row.DropsAsleep)
	if row.Sleeping > 0 {
		fmt.Fprintf(w.out, " %ssleeping=%d%s", colorYellow, row.Sleeping, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteState prints one drone's state.
func (w *ColorStdoutWriter) WriteState(row telemetry.NodeStateRow) error {
	w.once.Do(w.printOverview)
	status := colorGreen + "awake" + colorReset
	if row.Asleep {
		status = colorYellow + "asleep" + colorReset
	}
	fmt.Fprintf(w.out, "%s[%10.6fs]%s %snode=%d%s pos=(%.1f,%.1f,%.1f) spd=%.1f batt=%.0fJ q=%d wait=%d nbrs=%d %s\n",
		colorGray, row.SimTime, colorReset,
		nodeColor(row.NodeID), row.NodeID, colorReset,
		row.X, row.Y, row.Z, row.Speed, row.Residual,
		row.QueueLen, row.WaitingLen, row.Neighbors, status)
	return nil
}

// WriteStates prints multiple drone states.
func (w *ColorStdoutWriter) WriteStates(rows []telemetry.NodeStateRow) error {
	for _, r := range rows {
		_ = w.WriteState(r)
	}
	return nil
}
