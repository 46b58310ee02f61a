package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tcabral/clustopher/cluster"
	"github.com/tcabral/clustopher/clusterio"
)

func newServeCommand() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve viewport cluster queries over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			return runServe(cfg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides config)")
	return cmd
}

// clusterServer holds the currently loaded engine plus the save
// directory it persists named snapshots under, the same single-engine
// ownership model the teacher's ClusterServer used.
type clusterServer struct {
	engine  *cluster.Supercluster[GeoPoint]
	saveDir string
	log     *zap.SugaredLogger
}

func newClusterServer(cfg *Config, log *zap.SugaredLogger) *clusterServer {
	return &clusterServer{saveDir: cfg.SaveDir, log: log}
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func (s *clusterServer) generateFilename(numPoints int) string {
	timestamp := time.Now().Format("20060102-150405")
	id := uuid.New().String()[:8]
	return filepath.Join(s.saveDir, fmt.Sprintf("cluster-%dp-%s-%s.zst", numPoints, timestamp, id))
}

func getBoundsFromQuery(c *gin.Context) (minX, minY, maxX, maxY float64, zoom int, err error) {
	zoom, err = strconv.Atoi(c.Query("zoom"))
	if err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("invalid zoom parameter")
	}
	north, err := strconv.ParseFloat(c.Query("north"), 64)
	if err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("invalid north parameter")
	}
	south, err := strconv.ParseFloat(c.Query("south"), 64)
	if err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("invalid south parameter")
	}
	east, err := strconv.ParseFloat(c.Query("east"), 64)
	if err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("invalid east parameter")
	}
	west, err := strconv.ParseFloat(c.Query("west"), 64)
	if err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("invalid west parameter")
	}
	return west, south, east, north, zoom, nil
}

func resultsToGeoJSON(results []cluster.Result[GeoPoint]) gin.H {
	features := make([]gin.H, len(results))
	for i, r := range results {
		properties := gin.H{
			"cluster":     r.IsCluster,
			"point_count": r.NumPoints,
		}
		if r.IsCluster {
			properties["id"] = fmt.Sprint(r.ID)
			if sums, ok := r.Aggregate.(map[string]float64); ok {
				properties["metrics"] = sums
			}
		} else {
			properties["id"] = r.Point.ID
			properties["metrics"] = r.Point.Metrics
			properties["metadata"] = r.Point.Metadata
		}
		features[i] = gin.H{
			"type": "Feature",
			"geometry": gin.H{
				"type":        "Point",
				"coordinates": []float64{r.X, r.Y},
			},
			"properties": properties,
		}
	}
	return gin.H{"type": "FeatureCollection", "features": features}
}

type clusterFileInfo struct {
	ID        string    `json:"id"`
	NumPoints int       `json:"numPoints"`
	Timestamp time.Time `json:"timestamp"`
	FileSize  int64     `json:"fileSize"`
}

func parseClusterFilename(name string) (numPoints int, timestamp time.Time, id string, ok bool) {
	name = strings.TrimSuffix(name, ".zst")
	parts := strings.Split(name, "-")
	if len(parts) != 5 {
		return 0, time.Time{}, "", false
	}
	numPoints, err := strconv.Atoi(strings.TrimSuffix(parts[1], "p"))
	if err != nil {
		return 0, time.Time{}, "", false
	}
	timestamp, err = time.Parse("20060102-150405", parts[2]+"-"+parts[3])
	if err != nil {
		return 0, time.Time{}, "", false
	}
	return numPoints, timestamp, parts[4], true
}

func (s *clusterServer) listSavedClusters() ([]clusterFileInfo, error) {
	files, err := os.ReadDir(s.saveDir)
	if err != nil {
		return nil, err
	}
	clusters := make([]clusterFileInfo, 0)
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".zst" {
			continue
		}
		numPoints, timestamp, id, ok := parseClusterFilename(file.Name())
		if !ok {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		clusters = append(clusters, clusterFileInfo{ID: id, NumPoints: numPoints, Timestamp: timestamp, FileSize: info.Size()})
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Timestamp.After(clusters[j].Timestamp) })
	return clusters, nil
}

func (s *clusterServer) loadSavedClusterByID(cfg *Config, id string) (*clusterFileInfo, error) {
	files, err := os.ReadDir(s.saveDir)
	if err != nil {
		return nil, err
	}
	var path string
	var found clusterFileInfo
	for _, file := range files {
		if !strings.Contains(file.Name(), id) {
			continue
		}
		path = filepath.Join(s.saveDir, file.Name())
		numPoints, timestamp, parsedID, ok := parseClusterFilename(file.Name())
		if ok {
			info, _ := os.Stat(path)
			found = clusterFileInfo{ID: parsedID, NumPoints: numPoints, Timestamp: timestamp, FileSize: info.Size()}
		}
		break
	}
	if path == "" {
		return nil, fmt.Errorf("cluster with id %s not found", id)
	}

	points, err := clusterio.LoadCompressed(path, clusterio.JSONCodec[GeoPoint]())
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster: %w", err)
	}

	engine := cluster.NewSupercluster(s.options(cfg), cluster.WithLogger[GeoPoint](s.log))
	if err := engine.Load(points); err != nil {
		return nil, fmt.Errorf("failed to build cluster: %w", err)
	}
	s.engine = engine
	return &found, nil
}

func (s *clusterServer) options(cfg *Config) cluster.Options[GeoPoint] {
	opts := geoPointOptions()
	opts.MinZoom = cfg.Cluster.MinZoom
	opts.MaxZoom = cfg.Cluster.MaxZoom
	opts.MinPoints = cfg.Cluster.MinPoints
	opts.Radius = cfg.Cluster.Radius
	opts.Extent = cfg.Cluster.Extent
	opts.NodeSize = cfg.Cluster.NodeSize
	opts.Aggregate = sumMetrics()
	return opts
}

func (s *clusterServer) seedRandom(cfg *Config, numPoints int) error {
	points := generateRandomPoints(numPoints, -125.0, -67.0, 25.0, 49.0)
	engine := cluster.NewSupercluster(s.options(cfg), cluster.WithLogger[GeoPoint](s.log))
	if err := engine.Load(points); err != nil {
		return err
	}
	s.engine = engine

	savePath := s.generateFilename(numPoints)
	if err := clusterio.SaveCompressed(savePath, points, clusterio.JSONCodec[GeoPoint]()); err != nil {
		s.log.Warnw("failed to save seeded cluster", "path", savePath, "error", err)
		return nil
	}
	if info, err := os.Stat(savePath); err == nil {
		s.log.Infow("saved cluster", "path", savePath, "size", formatFileSize(info.Size()))
	}
	return nil
}

func runServe(cfg *Config) error {
	log := newLogger()
	defer log.Sync()

	if err := os.MkdirAll(cfg.SaveDir, 0755); err != nil {
		return fmt.Errorf("failed to create save dir: %w", err)
	}

	server := newClusterServer(cfg, log)

	r := gin.Default()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", strings.Join(cfg.Server.AllowedOrigins, ","))
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/api/clusters", func(c *gin.Context) {
		minX, minY, maxX, maxY, zoom, err := getBoundsFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if server.engine == nil {
			c.JSON(http.StatusOK, resultsToGeoJSON(nil))
			return
		}
		results, err := server.engine.Search(minX, minY, maxX, maxY, zoom)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resultsToGeoJSON(results))
	})

	r.GET("/api/clusters/list", func(c *gin.Context) {
		clusters, err := server.listSavedClusters()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, clusters)
	})

	r.POST("/api/clusters", func(c *gin.Context) {
		var req struct {
			NumPoints int `json:"numPoints"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := server.seedRandom(cfg, req.NumPoints); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "new cluster created"})
	})

	r.POST("/api/clusters/load/:id", func(c *gin.Context) {
		info, err := server.loadSavedClusterByID(cfg, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "cluster loaded successfully", "clusterInfo": info})
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Infow("starting server", "port", cfg.Server.Port)
		if err := r.Run(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
			log.Errorw("server error", "error", err)
		}
	}()

	<-quit
	log.Info("shutting down")

	if server.engine != nil {
		points := server.engine.Points()
		savePath := server.generateFilename(len(points))
		if err := clusterio.SaveCompressed(savePath, points, clusterio.JSONCodec[GeoPoint]()); err != nil {
			log.Errorw("failed to save cluster on shutdown", "error", err)
		} else {
			log.Infow("saved cluster on shutdown", "path", savePath)
		}
	}
	return nil
}
