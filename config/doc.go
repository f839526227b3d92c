// Package config loads the blog API configuration.
//
// Configuration is read from an optional YAML file whose values may
// reference environment variables as ${VAR_NAME}. Defaults are applied
// next, then the process environment:
//
//	NODE_ENV                 env
//	API_PORT                 server.port
//	API_PASETO_LIFESPAN      paseto.lifespan (milliseconds)
//	API_PASETO_PUBLIC_KEY    paseto.public_key (base64 of a PEM key)
//	API_PASETO_PRIVATE_KEY   paseto.private_key (base64 of a PEM key)
//	API_DATABASE_DRIVER      database.driver (sqlite, postgres)
//	API_DATABASE_DSN         database.dsn
//	API_DATABASE_HOST        database.host
//	POSTGRES_PORT            database.port
//	POSTGRES_USER            database.user
//	POSTGRES_PASSWORD        database.password
//	POSTGRES_DB              database.name
//
// Example file:
//
//	env: production
//	server:
//	  port: 8080
//	  shutdown_timeout: "10s"
//	paseto:
//	  lifespan: 120000
//	  public_key: "${API_PASETO_PUBLIC_KEY}"
//	  private_key: "${API_PASETO_PRIVATE_KEY}"
//	database:
//	  driver: postgres
//	  host: db
//	  port: 5432
//	  user: blog
//	  password: "${POSTGRES_PASSWORD}"
//	  name: blog
//	logging:
//	  level: info
//
// Key material and passwords are held as Secret values and never appear
// in formatted or marshalled output.
package config
