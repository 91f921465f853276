package storage_test

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startContainer runs image and returns host:port of the exposed port.
func startContainer(ctx context.Context, req testcontainers.ContainerRequest, port string) (testcontainers.Container, string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("testcontainers.GenericContainer: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return container, "", fmt.Errorf("container.Host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		return container, "", fmt.Errorf("container.MappedPort: %w", err)
	}

	return container, fmt.Sprintf("%s:%s", host, mapped.Port()), nil
}

func startMySQL(ctx context.Context) (testcontainers.Container, string, error) {
	container, addr, err := startContainer(ctx, testcontainers.ContainerRequest{
		Image:        "mysql:8.4",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "root",
			"MYSQL_DATABASE":      "campus_market",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(3 * time.Minute),
	}, "3306/tcp")
	if err != nil {
		return container, "", err
	}

	dsn := fmt.Sprintf("root:root@tcp(%s)/campus_market?parseTime=true&clientFoundRows=true", addr)
	return container, dsn, nil
}

func startMongo(ctx context.Context) (testcontainers.Container, string, error) {
	container, addr, err := startContainer(ctx, testcontainers.ContainerRequest{
		Image:        "mongo:7.0",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(2 * time.Minute),
	}, "27017/tcp")
	if err != nil {
		return container, "", err
	}

	return container, "mongodb://" + addr, nil
}

func startRedis(ctx context.Context) (testcontainers.Container, string, error) {
	return startContainer(ctx, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}, "6379/tcp")
}

func terminate(container testcontainers.Container) {
	if container != nil {
		_ = container.Terminate(context.Background())
	}
}
