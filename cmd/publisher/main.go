package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/raviteja1088/wayfindr-app/config"
	"github.com/raviteja1088/wayfindr-app/module/core/domain"
	"github.com/raviteja1088/wayfindr-app/module/core/service"
	"github.com/raviteja1088/wayfindr-app/module/device"
)

const (
	// the bus starts this far north of the stop, roughly 2km
	startOffsetDeg = 0.018
	steps          = 40
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	config.InitLogging()

	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <vehicle_id> <interval_seconds>\n", os.Args[0])
		os.Exit(1)
	}

	vehicleID := os.Args[1]
	if _, err := uuid.Parse(vehicleID); err != nil {
		fmt.Fprintf(os.Stderr, "error: vehicle_id must be a uuid\n")
		os.Exit(1)
	}

	intervalSec, err := strconv.Atoi(os.Args[2])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}

	broker := "tcp://localhost:1883"
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		broker = v
	}
	stopLat := envFloat("STOP_LAT", -6.2088)
	stopLon := envFloat("STOP_LON", 106.8456)

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("fleet-sim-" + vehicleID[:8])

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("mqtt connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	pub := device.NewPublisher(client, vehicleID)

	log.Printf("connected to %s, driving %s toward (%f, %f) every %ds...", broker, vehicleID, stopLat, stopLon, intervalSec)

	interval := time.Duration(intervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	heading := 180.0
	step := 0
	prevLat, prevLon := stopLat+startOffsetDeg, stopLon

	for range ticker.C {
		// shuttle between the start point and the stop
		progress := float64(step%(2*steps)) / steps
		if progress > 1 {
			progress = 2 - progress
			heading = 0
		} else {
			heading = 180
		}
		step++

		lat := stopLat + startOffsetDeg*(1-progress)
		lon := stopLon
		speed := service.Haversine(prevLat, prevLon, lat, lon) / interval.Hours()
		prevLat, prevLon = lat, lon

		fix := domain.Fix{Lat: lat, Lon: lon, Speed: &speed, Heading: &heading, CapturedAt: time.Now()}
		if err := pub.PublishFix(fix); err != nil {
			log.Printf("publish fix: %v", err)
			continue
		}

		dist := service.Haversine(lat, lon, stopLat, stopLon)
		log.Printf("published fix for %s: (%f, %f) %.0fm from stop", vehicleID, lat, lon, dist*1000)
	}
}
