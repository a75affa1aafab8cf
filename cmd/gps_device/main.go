package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/raviteja1088/wayfindr-app/config"
	"github.com/raviteja1088/wayfindr-app/module/device"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	config.InitLogging()

	vehicleID := os.Getenv("VEHICLE_ID")
	if _, err := uuid.Parse(vehicleID); err != nil {
		log.Fatalf("VEHICLE_ID must be a uuid: %v", err)
	}

	baud, err := strconv.Atoi(getEnv("GPS_BAUD", "9600"))
	if err != nil {
		log.Fatalf("GPS_BAUD: %v", err)
	}

	fixTimeout, err := time.ParseDuration(getEnv("GPS_FIX_TIMEOUT", device.DefaultFixTimeout.String()))
	if err != nil {
		log.Fatalf("GPS_FIX_TIMEOUT: %v", err)
	}

	broker := getEnv("MQTT_BROKER", "tcp://localhost:1883")
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("fleet-gps-" + vehicleID[:8])

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("mqtt connect: %v", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("gps device connected to MQTT broker at %s", broker)

	serialOpts := serial.OpenOptions{
		PortName:              getEnv("GPS_PORT", "/dev/serial0"),
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	pub := device.NewPublisher(client, vehicleID)

	port, err := serial.Open(serialOpts)
	if err != nil {
		if perr := pub.PublishFault(device.FaultSensorUnavailable, err.Error()); perr != nil {
			log.Printf("publish fault: %v", perr)
		}
		log.Fatalf("open %s: %v", serialOpts.PortName, err)
	}
	defer port.Close()
	log.Printf("gps serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agent := device.NewAgent(device.NewFixReader(port), pub, fixTimeout)
	if err := agent.Run(ctx); err != nil {
		log.Printf("gps device: %v", err)
		return
	}
	log.Println("shutting down")
}
