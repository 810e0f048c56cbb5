package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/vehicle-maintenance/internal/config"
	"github.com/ukydev/vehicle-maintenance/internal/models"
	"github.com/ukydev/vehicle-maintenance/internal/schedule"
	"github.com/ukydev/vehicle-maintenance/internal/service"
)

var errConflict = errors.New("already exists")

var makesAndModels = map[string][]string{
	"Ford":      {"F-150", "Focus", "Mach-E"},
	"Toyota":    {"Camry", "Corolla", "RAV4"},
	"Honda":     {"Civic", "Accord", "CR-V"},
	"Tesla":     {"Model 3", "Model Y"},
	"Chevrolet": {"Silverado", "Bolt"},
	"BMW":       {"X5", "330i"},
}

// Service types and the mileage (km) after which each falls due.
var serviceIntervals = []struct {
	Type  string
	Every float64
}{
	{"Oil Change", 8000},
	{"Tire Rotation", 10000},
	{"Brake Inspection", 20000},
}

// client talks to the API as one registered user.
type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

// do sends body as JSON and decodes a 2xx response into out.
func (c *client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return errConflict
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, apiErr.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// signIn registers the user, or logs in when the account already exists.
func (c *client) signIn(ctx context.Context, username, email, password string) error {
	var resp models.LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", models.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}, &resp)
	if errors.Is(err, errConflict) {
		err = c.do(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Username: username, Password: password}, &resp)
	}
	if err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

func (c *client) createVehicle(ctx context.Context, in service.VehicleInput) (string, error) {
	var resp struct {
		VehicleID string `json:"vehicle_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/vehicles", in, &resp); err != nil {
		return "", err
	}
	if resp.VehicleID == "" {
		return "", fmt.Errorf("invalid vehicle ID in response")
	}
	return resp.VehicleID, nil
}

func (c *client) addMaintenance(ctx context.Context, in models.CreateMaintenanceInput) (string, error) {
	var resp struct {
		MaintenanceID string `json:"maintenance_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/maintenance", in, &resp); err != nil {
		return "", err
	}
	return resp.MaintenanceID, nil
}

func randomVehicle() service.VehicleInput {
	makes := make([]string, 0, len(makesAndModels))
	for m := range makesAndModels {
		makes = append(makes, m)
	}
	mk := makes[rand.Intn(len(makes))]
	choices := makesAndModels[mk]
	return service.VehicleInput{
		Make:  mk,
		Model: choices[rand.Intn(len(choices))],
		Year:  2015 + rand.Intn(10),
	}
}

// vehicleState tracks the odometer of one simulated vehicle and the mileage at
// which each service type was last done.
type vehicleState struct {
	VehicleID   string
	Mileage     float64
	SpeedKmh    float64
	lastService map[string]float64
}

func newVehicleState(id string) *vehicleState {
	return &vehicleState{
		VehicleID:   id,
		Mileage:     float64(rand.Intn(50000)),
		SpeedKmh:    40 + rand.Float64()*50,
		lastService: make(map[string]float64),
	}
}

// drive advances the odometer by simulated hours of driving and returns the
// service types that fell due.
func (s *vehicleState) drive(hours float64) []string {
	s.Mileage += s.SpeedKmh * hours
	var due []string
	for _, si := range serviceIntervals {
		if s.Mileage-s.lastService[si.Type] >= si.Every {
			s.lastService[si.Type] = s.Mileage
			due = append(due, si.Type)
		}
	}
	return due
}

func simulateVehicle(ctx context.Context, c *client, s *vehicleState, interval time.Duration, hoursPerTick float64) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		for _, serviceType := range s.drive(hoursPerTick) {
			id, err := c.addMaintenance(ctx, models.CreateMaintenanceInput{
				VehicleID:       s.VehicleID,
				MaintenanceType: serviceType,
				Mileage:         &s.Mileage,
				LastServiceDate: time.Now().UTC().Format(schedule.DateLayout),
			})
			fields := log.Fields{"vehicle_id": s.VehicleID, "maintenance_type": serviceType, "mileage": int(s.Mileage)}
			if err != nil {
				log.WithFields(fields).WithError(err).Error("Failed to add maintenance record")
				continue
			}
			log.WithFields(fields).WithField("maintenance_id", id).Info("Added maintenance record")
		}
	}
}

func main() {
	apiURL := config.String("API_BASE_URL", "http://localhost:8080")
	fleetSize := config.Int("FLEET_SIZE", 5)
	interval := config.Duration("SIM_TICK", 2*time.Second)
	hoursPerTick, err := strconv.ParseFloat(config.String("SIM_HOURS_PER_TICK", "24"), 64)
	if err != nil || hoursPerTick <= 0 {
		hoursPerTick = 24
	}
	username := config.String("SIM_USERNAME", "simulator")
	email := config.String("SIM_EMAIL", "simulator@example.com")
	password := config.String("SIM_PASSWORD", "simulator-password")

	log.WithFields(log.Fields{
		"fleet_size":     fleetSize,
		"api_url":        apiURL,
		"interval":       interval,
		"hours_per_tick": hoursPerTick,
	}).Info("Starting maintenance simulation")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := newClient(apiURL)
	if token := os.Getenv("SIM_AUTH_TOKEN"); token != "" {
		c.token = token
	} else if err := c.signIn(ctx, username, email, password); err != nil {
		log.WithError(err).Fatal("Failed to sign in")
	}

	states := make([]*vehicleState, 0, fleetSize)
	for i := 0; i < fleetSize; i++ {
		in := randomVehicle()
		id, err := c.createVehicle(ctx, in)
		if err != nil {
			log.WithError(err).Error("Failed to create vehicle")
			continue
		}
		log.WithFields(log.Fields{"vehicle_id": id, "make": in.Make, "model": in.Model, "year": in.Year}).Info("Created vehicle")
		states = append(states, newVehicleState(id))
	}

	log.WithField("created_vehicles", len(states)).Info("Vehicle creation completed")
	if len(states) == 0 {
		log.Error("No vehicles created. Ensure the API is reachable. Exiting.")
		return
	}

	var wg sync.WaitGroup
	for _, s := range states {
		wg.Add(1)
		go func(s *vehicleState) {
			defer wg.Done()
			simulateVehicle(ctx, c, s, interval, hoursPerTick)
		}(s)
	}
	log.Info("Maintenance simulation started")
	wg.Wait()
	log.Info("Maintenance simulation stopped")
}
