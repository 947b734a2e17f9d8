package webserver

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Health check (unauthenticated)
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api/v1")

	// Authentication routes (public)
	auth := api.Group("/auth")
	{
		auth.POST("/register", s.register)
		auth.POST("/login", s.login)
	}

	// Protected routes
	protected := api.Group("")
	protected.Use(s.authMiddleware())
	{
		// Package management
		packages := protected.Group("/packages")
		{
			packages.GET("", s.listPackages)
			packages.POST("", s.createPackage)
			packages.GET("/:id", s.getPackage)
			packages.PATCH("/:id", s.updatePackage)
			packages.POST("/:id/images", s.uploadPackageImage)
			packages.DELETE("/:id/images/:imageID", s.deletePackageImage)
		}

		// Travel management
		travels := protected.Group("/travels")
		{
			travels.GET("", s.listTravels)
			travels.POST("", s.createTravel)
			travels.GET("/:id", s.getTravel)
			travels.PATCH("/:id", s.updateTravel)
		}

		// Deal negotiation
		dealRoutes := protected.Group("/deals")
		{
			dealRoutes.GET("", s.listDeals)
			dealRoutes.POST("", s.proposeDeal)
		}

		// Confirmed deals
		doneDeals := protected.Group("/donedeals")
		{
			doneDeals.GET("", s.listDoneDeals)
			doneDeals.POST("", s.confirmDeal)
		}

		// Profile
		protected.GET("/me", s.getProfile)
		protected.PATCH("/me", s.updateProfile)
	}
}
