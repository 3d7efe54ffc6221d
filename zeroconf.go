package main

import (
	"github.com/grandcat/zeroconf"
	"github.com/sirupsen/logrus"
)

const (
	zeroConfName    = "OMX Looper"
	zeroConfService = "_omx-looper._tcp"
	zeroConfDomain  = "local."
)

func startZeroConfService(port int, version, device string, log logrus.FieldLogger) (*zeroconf.Server, error) {
	name := zeroConfName + " " + device
	log.Infof("Starting zeroconf service [%s]", name)
	return zeroconf.Register(name, zeroConfService, zeroConfDomain, port, []string{"version=" + version, "device=" + device}, nil)
}
