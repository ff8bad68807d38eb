// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018-2022 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/edgexfoundry/device-sdk-go/v4/pkg/startup"

	device_laser "github.com/linjuya-lu/device_laser_go"
	"github.com/linjuya-lu/device_laser_go/internal/driver"
)

const (
	serviceName string = "device-laser"
)

func main() {
	d := driver.NewLaserDeviceDriver()
	startup.Bootstrap(serviceName, device_laser.Version, d)
}
