package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/apis/v1")
	api.Use(s.middleware.RateLimit.Handler())
	api.GET("/voterEmailAddressRetrieve", s.retrieveEmailAddresses)
	api.GET("/voterEmailAddressSignIn", s.signInWithSecretKey)
	api.GET("/voterEmailAddressVerify", s.verifyEmailWithSecretKey)
	api.GET("/voterEmailAddressSave", s.saveEmailAddress)
	api.POST("/voterEmailAddressSave", s.saveEmailAddress)

	admin := api.Group("/admin")
	admin.Use(s.middleware.AdminKey.RequireAdminKey())
	admin.POST("/voters/:id/emailVerification", s.runEmailVerification)
	admin.POST("/voters/:id/contactAugmentation", s.runContactAugmentation)
	admin.POST("/voters/:id/moveEmails", s.moveEmails)
	admin.GET("/apiUsage", s.getAPIUsage)
	admin.GET("/auditLogs", s.listAuditLogs)
}
