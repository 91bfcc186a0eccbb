package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type streamStat struct {
	messages int64
	bytes    int64
}

var (
	errorsDepth    int64
	errorsPrice    int64
	warnsDepth     int64
	warnsPrice     int64
	depthAccepted  int64
	depthRejected  int64
	priceAccepted  int64
	priceRejected  int64
	snapshotReads  int64
	streams        sync.Map // map[string]*streamStat
)

func recordWarn(component string) {
	if strings.Contains(component, "depth") {
		atomic.AddInt64(&warnsDepth, 1)
	} else if strings.Contains(component, "price") {
		atomic.AddInt64(&warnsPrice, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "depth") {
		atomic.AddInt64(&errorsDepth, 1)
	} else if strings.Contains(component, "price") {
		atomic.AddInt64(&errorsPrice, 1)
	}
}

func IncrementDepthAccepted() { atomic.AddInt64(&depthAccepted, 1) }
func IncrementDepthRejected() { atomic.AddInt64(&depthRejected, 1) }
func IncrementPriceAccepted() { atomic.AddInt64(&priceAccepted, 1) }
func IncrementPriceRejected() { atomic.AddInt64(&priceRejected, 1) }

func IncrementSnapshotRead(size int) {
	atomic.AddInt64(&snapshotReads, 1)
	recordStream("snapshot_rest", size)
}

// RecordStreamMessage accounts one raw frame read from a realtime stream.
func RecordStreamMessage(name string, size int) {
	recordStream(name, size)
}

func recordStream(name string, size int) {
	v, _ := streams.LoadOrStore(name, &streamStat{})
	cs := v.(*streamStat)
	atomic.AddInt64(&cs.messages, 1)
	atomic.AddInt64(&cs.bytes, int64(size))
}

// StartReport begins periodic logging of system and stream statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	netStats, _ := gnet.IOCounters(false)
	streamData := map[string]map[string]int64{}
	streams.Range(func(k, v any) bool {
		name := k.(string)
		cs := v.(*streamStat)
		streamData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&cs.messages),
			"bytes":    atomic.LoadInt64(&cs.bytes),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	bytesSent := uint64(0)
	bytesRecv := uint64(0)
	if len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}

	memUsedMB := int64(0)
	if memStats != nil {
		memUsedMB = int64(memStats.Used) / 1024 / 1024
	}

	fields := Fields{
		"errors_depth":   atomic.LoadInt64(&errorsDepth),
		"errors_price":   atomic.LoadInt64(&errorsPrice),
		"warns_depth":    atomic.LoadInt64(&warnsDepth),
		"warns_price":    atomic.LoadInt64(&warnsPrice),
		"depth_accepted": atomic.LoadInt64(&depthAccepted),
		"depth_rejected": atomic.LoadInt64(&depthRejected),
		"price_accepted": atomic.LoadInt64(&priceAccepted),
		"price_rejected": atomic.LoadInt64(&priceRejected),
		"snapshot_reads": atomic.LoadInt64(&snapshotReads),
		"goroutines":     runtime.NumGoroutine(),
		"cpu_percent":    cpuPct,
		"memory_mb":      memUsedMB,
		"streams":        streamData,
		"net_bytes_sent": int64(bytesSent),
		"net_bytes_recv": int64(bytesRecv),
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memUsedMB))},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsDepth"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_depth"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsPrice"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_price"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("WarnsDepth"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_depth"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("WarnsPrice"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_price"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("DepthAccepted"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["depth_accepted"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("DepthRejected"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["depth_rejected"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("PriceAccepted"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["price_accepted"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("PriceRejected"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["price_rejected"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("SnapshotReads"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["snapshot_reads"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		cwtypes.MetricDatum{MetricName: aws.String("NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
	)

	for name, stats := range streamData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("StreamMessages"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Stream"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["messages"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("StreamBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Stream"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["bytes"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
