/*
Package config loads Herald's host configuration.

Settings live in a YAML file; secrets stay in the environment, seeded
from an optional .env file for development. The engine itself never
reads configuration, it receives everything as parameters.
*/
package config
