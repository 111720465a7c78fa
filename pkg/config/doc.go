// Package config loads typed configuration structs from environment
// variables using github.com/caarlos0/env, after reading an optional .env file
// with github.com/joho/godotenv.
//
// Every package that needs configuration exposes a struct with env tags and
// a DefaultConfig function; the binary loads each of them with Load and a
// shared prefix.
package config
