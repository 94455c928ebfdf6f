package restapi

import (
	"net/http/pprof"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterOptions configures SetupRouter.
type RouterOptions struct {
	CORSAllowedOrigins []string
	EnablePprof        bool
	Logger             *zap.Logger
}

// SetupRouter builds the gin engine with the API, metrics and optional pprof routes.
func SetupRouter(h *PortfolioHandler, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if opts.Logger != nil {
		router.Use(ZapLoggerMiddleware(opts.Logger.Named("http")))
	}

	corsConfig := cors.DefaultConfig()
	if len(opts.CORSAllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.CORSAllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/portfolio/current", h.GetCurrentPortfolioHandler)
		v1.GET("/portfolio/:address", h.GetPortfolioHandler)
		v1.GET("/portfolios", h.GetPortfoliosHandler)
		v1.GET("/nfts/:address", h.GetNFTsHandler)
		v1.GET("/prices/:symbol", h.GetPriceHandler)
		v1.GET("/health/prices", h.GetPriceHealthHandler)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if opts.EnablePprof {
		pprofRouter := router.Group("/debug/pprof")
		{
			pprofRouter.GET("/", gin.WrapF(pprof.Index))
			pprofRouter.GET("/cmdline", gin.WrapF(pprof.Cmdline))
			pprofRouter.GET("/profile", gin.WrapF(pprof.Profile))
			pprofRouter.GET("/symbol", gin.WrapF(pprof.Symbol))
			pprofRouter.GET("/trace", gin.WrapF(pprof.Trace))
			pprofRouter.GET("/heap", gin.WrapH(pprof.Handler("heap")))
			pprofRouter.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
		}
	}
	return router
}
