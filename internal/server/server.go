// Package server exposes the live feed and the backend's on-demand
// surface to dashboard frontends as plain JSON.
package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/DaeVac/GridNinja/internal/api"
	"github.com/DaeVac/GridNinja/internal/feed"
)

// Register wires the dashboard routes onto app. f is the live telemetry
// feed; client reaches the backend's request/response endpoints.
func Register(app *fiber.App, f *feed.Feed, client *api.Client) {
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	app.Get("/api/status", func(c *fiber.Ctx) error {
		status, tier, _, _ := f.Snapshot()
		return c.JSON(fiber.Map{
			"status":    status,
			"transport": tier,
		})
	})

	app.Get("/api/live", func(c *fiber.Ctx) error {
		status, tier, latest, _ := f.Snapshot()
		return c.JSON(fiber.Map{
			"status":    status,
			"transport": tier,
			"latest":    latest,
		})
	})

	app.Get("/api/history", func(c *fiber.Ctx) error {
		status, tier, latest, buf := f.Snapshot()
		return c.JSON(fiber.Map{
			"status":    status,
			"transport": tier,
			"latest":    latest,
			"points":    buf,
		})
	})

	app.Get("/api/kpi", func(c *fiber.Ctx) error {
		windowS := c.QueryInt("window_s", 900)
		k, err := client.KpiSummary(c.Context(), windowS)
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(k)
	})

	app.Get("/api/trace", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 50)
		tr, err := client.TraceLatest(c.Context(), limit)
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(tr)
	})

	app.Get("/api/decision", func(c *fiber.Ctx) error {
		deltaP, err := strconv.ParseFloat(c.Query("deltaP_request_kw"), 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "deltaP_request_kw required"})
		}
		pSite, err := strconv.ParseFloat(c.Query("P_site_kw"), 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "P_site_kw required"})
		}
		req := api.DecisionRequest{
			DeltaPRequestKw: deltaP,
			PSiteKw:         pSite,
			HorizonS:        c.QueryInt("horizon_s", 30),
		}
		if raw := c.Query("grid_headroom_kw"); raw != "" {
			h, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad grid_headroom_kw"})
			}
			req.GridHeadroomKw = &h
		}
		d, err := client.DecisionLatest(c.Context(), req)
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(d)
	})

	app.Get("/api/grid/topology", func(c *fiber.Ctx) error {
		topo, err := client.GridTopology(c.Context())
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(topo)
	})

	app.Get("/api/grid/predict", func(c *fiber.Ctx) error {
		nodeID := c.QueryInt("node_id", 18)
		pred, err := client.GridPredict(c.Context(), nodeID)
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(pred)
	})

	app.Post("/api/demo/scenario/:name", func(c *fiber.Ctx) error {
		if err := client.RunScenario(c.Context(), c.Params("name")); err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "running"})
	})

	app.Post("/api/demo/reset", func(c *fiber.Ctx) error {
		if err := client.ResetDemo(c.Context()); err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "reset"})
	})
}
