package main

type Notifier interface {
	NotifyMirrorResults(appConfig AppConfig, resultMap *MirrorResult) error
}
