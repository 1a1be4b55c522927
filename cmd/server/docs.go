package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Botdesk API
// @version         0.1.0
// @description     Trading-bot accounts, strategy configs, and launch control.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
